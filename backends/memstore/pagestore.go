package memstore

import (
	"context"
	"sync"

	"github.com/distsql/nodectl"
)

// PageStore is a process-local, in-memory nodectl.PageStore.
type PageStore struct {
	mu             sync.RWMutex
	pages          map[string]map[nodectl.UUID][][]byte
	tables         map[nodectl.TableSpaceName][]nodectl.TableMetadata
	checkpointLSNs map[nodectl.TableSpaceName]nodectl.LogSequenceNumber
}

// NewPageStore returns an empty PageStore.
func NewPageStore() *PageStore {
	return &PageStore{
		pages:          make(map[string]map[nodectl.UUID][][]byte),
		tables:         make(map[nodectl.TableSpaceName][]nodectl.TableMetadata),
		checkpointLSNs: make(map[nodectl.TableSpaceName]nodectl.LogSequenceNumber),
	}
}

func (s *PageStore) Start(ctx context.Context) error { return nil }
func (s *PageStore) Close(ctx context.Context) error { return nil }

func (s *PageStore) LoadPage(ctx context.Context, table string, pageId nodectl.UUID) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.pages[table]
	if !ok {
		return nil, nil
	}
	return t[pageId], nil
}

func (s *PageStore) LoadExistingKeys(ctx context.Context, table string, consumer func(key []byte) error) error {
	s.mu.RLock()
	t := s.pages[table]
	keys := make([]nodectl.UUID, 0, len(t))
	for id := range t {
		keys = append(keys, id)
	}
	s.mu.RUnlock()

	for _, id := range keys {
		if err := consumer(id[:]); err != nil {
			return err
		}
	}
	return nil
}

func (s *PageStore) WritePage(ctx context.Context, table string, lsn nodectl.LogSequenceNumber, page [][]byte) (nodectl.UUID, error) {
	id := nodectl.NewUUID()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pages[table] == nil {
		s.pages[table] = make(map[nodectl.UUID][][]byte)
	}
	s.pages[table][id] = page
	return id, nil
}

func (s *PageStore) ActualNumberOfPages(ctx context.Context, table string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pages[table]), nil
}

func (s *PageStore) LoadTables(ctx context.Context, lsn nodectl.LogSequenceNumber, space nodectl.TableSpaceName) ([]nodectl.TableMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]nodectl.TableMetadata(nil), s.tables[space]...), nil
}

func (s *PageStore) WriteTables(ctx context.Context, space nodectl.TableSpaceName, lsn nodectl.LogSequenceNumber, tables []nodectl.TableMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[space] = append([]nodectl.TableMetadata(nil), tables...)
	s.checkpointLSNs[space] = lsn
	return nil
}

func (s *PageStore) LastCheckpointLSN(ctx context.Context) nodectl.LogSequenceNumber {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var max nodectl.LogSequenceNumber
	for _, lsn := range s.checkpointLSNs {
		if lsn > max {
			max = lsn
		}
	}
	return max
}
