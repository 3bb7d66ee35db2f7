package nodectl

import "context"

// Capability is the narrow, node-to-manager-direction handle passed into a
// TableSpaceManagerFactory, instead of the whole Manager. Per the cyclic
// reference design note: a tablespace manager needs to submit background
// work, look up a sibling tablespace, and reach the shared collaborator
// handles, but must not retain the ability to start/close the node or
// mutate the registry directly.
type Capability struct {
	nodeId    NodeId
	metadata  MetadataStore
	pages     PageStore
	registry  *registry
	pool      *workerPool
	lockForReads func(fn func())
}

// NodeId returns the identity of the node hosting this capability.
func (c *Capability) NodeId() NodeId {
	return c.nodeId
}

// Metadata returns the shared Metadata Store handle.
func (c *Capability) Metadata() MetadataStore {
	return c.metadata
}

// Pages returns the shared Page Store handle.
func (c *Capability) Pages() PageStore {
	return c.pages
}

// Submit offers task to the node's Worker Pool. If the pool is shutting
// down the task is dropped and logged, never blocking the caller.
func (c *Capability) Submit(ctx context.Context, task func(ctx context.Context) error) {
	c.pool.submit(ctx, task)
}

// LookupTableSpace returns another tablespace's manager, if hosted on this
// node, taking the shared general lock for the duration of the lookup.
func (c *Capability) LookupTableSpace(name TableSpaceName) (TableSpaceManager, bool) {
	var m TableSpaceManager
	var ok bool
	c.lockForReads(func() {
		m, ok = c.registry.lookup(name)
	})
	return m, ok
}
