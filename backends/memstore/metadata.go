// Package memstore provides in-memory implementations of the Metadata
// Store, Durable Log, and Page Store contracts, for tests and local
// development where a real cluster/Cassandra/filesystem backend is
// unnecessary.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/distsql/nodectl"
)

// MetadataStore is a mutex-guarded, process-local nodectl.MetadataStore.
type MetadataStore struct {
	mu          sync.RWMutex
	descriptors map[nodectl.TableSpaceName]nodectl.TableSpaceDescriptor
}

// NewMetadataStore returns an empty MetadataStore.
func NewMetadataStore() *MetadataStore {
	return &MetadataStore{
		descriptors: make(map[nodectl.TableSpaceName]nodectl.TableSpaceDescriptor),
	}
}

func (s *MetadataStore) Start(ctx context.Context) error { return nil }
func (s *MetadataStore) Close(ctx context.Context) error { return nil }

func (s *MetadataStore) EnsureDefaultTableSpace(ctx context.Context, nodeId nodectl.NodeId, defaultName nodectl.TableSpaceName) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.descriptors[defaultName]; ok {
		return nil
	}
	descriptor, err := nodectl.NewTableSpaceDescriptorBuilder(defaultName).
		Leader(nodeId).
		AddReplica(nodeId).
		Build()
	if err != nil {
		return err
	}
	s.descriptors[defaultName] = descriptor
	return nil
}

func (s *MetadataStore) ListTableSpaces(ctx context.Context) ([]nodectl.TableSpaceName, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]nodectl.TableSpaceName, 0, len(s.descriptors))
	for name := range s.descriptors {
		names = append(names, name)
	}
	return names, nil
}

func (s *MetadataStore) Describe(ctx context.Context, name nodectl.TableSpaceName) (nodectl.TableSpaceDescriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.descriptors[name]
	if !ok {
		return nodectl.TableSpaceDescriptor{}, nodectl.NewError(nodectl.MetadataUnavailable, fmt.Errorf("tablespace %q not found", name), name)
	}
	return d, nil
}

func (s *MetadataStore) Register(ctx context.Context, descriptor nodectl.TableSpaceDescriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.descriptors[descriptor.Name]; ok {
		return nodectl.NewError(nodectl.DDLError, fmt.Errorf("tablespace %q already exists", descriptor.Name), descriptor.Name)
	}
	s.descriptors[descriptor.Name] = descriptor
	return nil
}
