package nodectl

// TableSpaceDescriptor is the cluster-level record of a tablespace's
// identity, leader, and replica set. It is owned by the Metadata Store; the
// Node Manager holds only read copies.
type TableSpaceDescriptor struct {
	Name     TableSpaceName
	Leader   NodeId
	Replicas map[NodeId]struct{}
}

// HasReplica reports whether nodeId is a member of the descriptor's replica set.
func (d TableSpaceDescriptor) HasReplica(nodeId NodeId) bool {
	_, ok := d.Replicas[nodeId]
	return ok
}

// TableSpaceDescriptorBuilder validates and constructs a TableSpaceDescriptor.
// Mirrors the invariant in createTableSpace: leader must be a replica and
// the replica set must be non-empty, checked before the descriptor ever
// reaches the catalog.
type TableSpaceDescriptorBuilder struct {
	name     TableSpaceName
	leader   NodeId
	replicas map[NodeId]struct{}
}

// NewTableSpaceDescriptorBuilder starts a builder for the given tablespace name.
func NewTableSpaceDescriptorBuilder(name TableSpaceName) *TableSpaceDescriptorBuilder {
	return &TableSpaceDescriptorBuilder{
		name:     name,
		replicas: make(map[NodeId]struct{}),
	}
}

// Leader sets the descriptor's leader node.
func (b *TableSpaceDescriptorBuilder) Leader(id NodeId) *TableSpaceDescriptorBuilder {
	b.leader = id
	return b
}

// AddReplica adds a node to the descriptor's replica set.
func (b *TableSpaceDescriptorBuilder) AddReplica(id NodeId) *TableSpaceDescriptorBuilder {
	b.replicas[id] = struct{}{}
	return b
}

// Build validates and returns the descriptor, failing with InvalidStatement
// if the name is empty, the replica set is empty, or the leader is not a
// member of the replica set.
func (b *TableSpaceDescriptorBuilder) Build() (TableSpaceDescriptor, error) {
	if b.name == "" {
		return TableSpaceDescriptor{}, NewError(InvalidStatement, errEmptyTableSpaceName, nil)
	}
	if len(b.replicas) == 0 {
		return TableSpaceDescriptor{}, NewError(InvalidStatement, errEmptyReplicaSet, b.name)
	}
	if _, ok := b.replicas[b.leader]; !ok {
		return TableSpaceDescriptor{}, NewError(InvalidStatement, errLeaderNotReplica, b.name)
	}
	return TableSpaceDescriptor{
		Name:     b.name,
		Leader:   b.leader,
		Replicas: b.replicas,
	}, nil
}
