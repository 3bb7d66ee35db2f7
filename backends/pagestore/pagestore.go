// Package pagestore implements the Page Store (C3) as a sharded filesystem
// directory tree: pages are blobs keyed by (table, page-id), hashed into a
// directory layout derived from the page id so no single directory holds
// more files than the filesystem handles comfortably.
package pagestore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sethvargo/go-retry"

	"github.com/distsql/nodectl"
	"github.com/distsql/nodectl/encoding"
	"github.com/distsql/nodectl/internal/erasure"
)

const dirPermission = os.ModePerm

// ToFilePathFunc formats a base directory and page id into a sharded path.
type ToFilePathFunc func(baseDir string, id nodectl.UUID) string

// DefaultToFilePath applies a 4-level directory hierarchy derived from the
// page id's first four hex digits, keeping per-directory file counts low.
func DefaultToFilePath(baseDir string, id nodectl.UUID) string {
	s := id.String()
	return filepath.Join(baseDir, string(s[0]), string(s[1]), string(s[2]), string(s[3]))
}

// PageStore is a filesystem-backed nodectl.PageStore, optionally wrapping
// pages with Reed-Solomon redundancy.
type PageStore struct {
	baseDir    string
	toFilePath ToFilePathFunc
	codec      *erasure.Codec // nil when erasure coding is disabled

	mu             sync.Mutex
	checkpointLSNs map[nodectl.TableSpaceName]nodectl.LogSequenceNumber
}

// New returns a PageStore rooted at baseDir. codec is nil unless erasure
// coding was enabled in Configuration.
func New(baseDir string, codec *erasure.Codec) *PageStore {
	return &PageStore{
		baseDir:        baseDir,
		toFilePath:     DefaultToFilePath,
		codec:          codec,
		checkpointLSNs: make(map[nodectl.TableSpaceName]nodectl.LogSequenceNumber),
	}
}

func (s *PageStore) Start(ctx context.Context) error {
	return os.MkdirAll(s.baseDir, dirPermission)
}

func (s *PageStore) Close(ctx context.Context) error { return nil }

func (s *PageStore) pageFile(table string, id nodectl.UUID) string {
	dir := s.toFilePath(filepath.Join(s.baseDir, table), id)
	return filepath.Join(dir, id.String())
}

// classifyIOError adapts a raw filesystem error for nodectl.Retry: a
// failover-qualified error (drive gone, I/O error, read-only remount) is
// left as-is so Retry gives up immediately; anything else ShouldRetry
// accepts is wrapped as retryable so Retry's Fibonacci backoff applies.
func classifyIOError(err error) error {
	if err == nil {
		return nil
	}
	if nodectl.IsFailoverQualifiedIOError(err) {
		slog.Warn("pagestore: failover-qualified I/O error, surfacing immediately", "error", err)
		return err
	}
	if !nodectl.ShouldRetry(err) {
		return err
	}
	return retry.RetryableError(err)
}

func (s *PageStore) LoadPage(ctx context.Context, table string, pageId nodectl.UUID) ([][]byte, error) {
	if s.codec == nil {
		var data []byte
		err := nodectl.Retry(ctx, func(context.Context) error {
			var e error
			data, e = os.ReadFile(s.pageFile(table, pageId))
			return classifyIOError(e)
		}, nil)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, nodectl.NewError(nodectl.StorageUnavailable, err, table)
		}
		return [][]byte{data}, nil
	}

	shards, metadata, err := s.readShards(ctx, table, pageId)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, nodectl.NewError(nodectl.StorageUnavailable, err, table)
	}
	result, err := s.codec.DecodePage(shards, metadata)
	if err != nil {
		return nil, nodectl.NewError(nodectl.StorageUnavailable, err, table)
	}
	return [][]byte{result.Page}, nil
}

func (s *PageStore) readShards(ctx context.Context, table string, pageId nodectl.UUID) ([][]byte, [][]byte, error) {
	dir := s.toFilePath(filepath.Join(s.baseDir, table), pageId)
	matches, err := filepath.Glob(filepath.Join(dir, pageId.String()+".shard*"))
	if err != nil {
		return nil, nil, err
	}
	// The pattern also matches each shard's ".meta" sidecar; keep only the
	// shard files themselves.
	var entries []string
	for _, m := range matches {
		if !strings.HasSuffix(m, ".meta") {
			entries = append(entries, m)
		}
	}
	if len(entries) == 0 {
		return nil, nil, os.ErrNotExist
	}

	shards := make([][]byte, len(entries))
	metadata := make([][]byte, len(entries))
	for i, path := range entries {
		path := path
		var data, meta []byte
		err := nodectl.Retry(ctx, func(context.Context) error {
			var e error
			data, e = os.ReadFile(path)
			return classifyIOError(e)
		}, nil)
		if err != nil {
			return nil, nil, err
		}
		err = nodectl.Retry(ctx, func(context.Context) error {
			var e error
			meta, e = os.ReadFile(path + ".meta")
			return classifyIOError(e)
		}, nil)
		if err != nil {
			return nil, nil, err
		}
		shards[i] = data
		metadata[i] = meta
	}
	return shards, metadata, nil
}

// LoadExistingKeys walks table's directory tree and delivers every page id
// found to consumer in ascending UUID order, so recovery replays a
// deterministic sequence regardless of the filesystem's own directory
// iteration order.
func (s *PageStore) LoadExistingKeys(ctx context.Context, table string, consumer func(key []byte) error) error {
	root := filepath.Join(s.baseDir, table)
	var ids []nodectl.UUID
	seen := make(map[nodectl.UUID]struct{})
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return nodectl.NewError(nodectl.StorageUnavailable, err, table)
		}
		if info.IsDir() {
			return nil
		}
		// Erasure-coded pages are stored as "<id>.shardNN" files plus ".meta"
		// sidecars; the page id is the file name up to its first dot.
		base := filepath.Base(path)
		if i := strings.IndexByte(base, '.'); i >= 0 {
			base = base[:i]
		}
		id, parseErr := nodectl.ParseUUID(base)
		if parseErr != nil {
			return nil
		}
		if _, dup := seen[id]; dup {
			return nil
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return err
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i].Compare(ids[j]) < 0 })
	for _, id := range ids {
		if err := consumer(id[:]); err != nil {
			return err
		}
	}
	return nil
}

func (s *PageStore) WritePage(ctx context.Context, table string, lsn nodectl.LogSequenceNumber, page [][]byte) (nodectl.UUID, error) {
	if len(page) == 0 {
		return nodectl.UUID{}, nodectl.NewError(nodectl.StorageUnavailable, fmt.Errorf("page must not be empty"), table)
	}
	id := nodectl.NewUUID()
	dir := s.toFilePath(filepath.Join(s.baseDir, table), id)
	if err := os.MkdirAll(dir, dirPermission); err != nil {
		return nodectl.UUID{}, nodectl.NewError(nodectl.StorageUnavailable, err, table)
	}

	if s.codec == nil {
		err := nodectl.Retry(ctx, func(context.Context) error {
			return classifyIOError(os.WriteFile(filepath.Join(dir, id.String()), page[0], 0o644))
		}, nil)
		if err != nil {
			return nodectl.UUID{}, nodectl.NewError(nodectl.StorageUnavailable, err, table)
		}
		return id, nil
	}

	shards, metadata, err := s.codec.EncodePage(page[0])
	if err != nil {
		return nodectl.UUID{}, nodectl.NewError(nodectl.StorageUnavailable, err, table)
	}
	for i, shard := range shards {
		name := fmt.Sprintf("%s.shard%02d", id.String(), i)
		shardPath := filepath.Join(dir, name)
		shardData := shard
		if err := nodectl.Retry(ctx, func(context.Context) error {
			return classifyIOError(os.WriteFile(shardPath, shardData, 0o644))
		}, nil); err != nil {
			return nodectl.UUID{}, nodectl.NewError(nodectl.StorageUnavailable, err, table)
		}
		metaPath := shardPath + ".meta"
		metaData := metadata[i]
		if err := nodectl.Retry(ctx, func(context.Context) error {
			return classifyIOError(os.WriteFile(metaPath, metaData, 0o644))
		}, nil); err != nil {
			return nodectl.UUID{}, nodectl.NewError(nodectl.StorageUnavailable, err, table)
		}
	}
	return id, nil
}

func (s *PageStore) ActualNumberOfPages(ctx context.Context, table string) (int, error) {
	count := 0
	root := filepath.Join(s.baseDir, table)
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !info.IsDir() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, nodectl.NewError(nodectl.StorageUnavailable, err, table)
	}
	return count, nil
}

func (s *PageStore) tablesFile(space nodectl.TableSpaceName) string {
	return filepath.Join(s.baseDir, string(space), "tables.json")
}

func (s *PageStore) LoadTables(ctx context.Context, lsn nodectl.LogSequenceNumber, space nodectl.TableSpaceName) ([]nodectl.TableMetadata, error) {
	data, err := os.ReadFile(s.tablesFile(space))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, nodectl.NewError(nodectl.StorageUnavailable, err, space)
	}
	var tables []nodectl.TableMetadata
	if err := encoding.DefaultMarshaler.Unmarshal(data, &tables); err != nil {
		return nil, nodectl.NewError(nodectl.StorageUnavailable, err, space)
	}
	return tables, nil
}

func (s *PageStore) WriteTables(ctx context.Context, space nodectl.TableSpaceName, lsn nodectl.LogSequenceNumber, tables []nodectl.TableMetadata) error {
	if err := os.MkdirAll(filepath.Join(s.baseDir, string(space)), dirPermission); err != nil {
		return nodectl.NewError(nodectl.StorageUnavailable, err, space)
	}
	data, err := encoding.DefaultMarshaler.Marshal(tables)
	if err != nil {
		return nodectl.NewError(nodectl.StorageUnavailable, err, space)
	}
	if err := os.WriteFile(s.tablesFile(space), data, 0o644); err != nil {
		return nodectl.NewError(nodectl.StorageUnavailable, err, space)
	}

	s.mu.Lock()
	s.checkpointLSNs[space] = lsn
	s.mu.Unlock()
	return nil
}

func (s *PageStore) LastCheckpointLSN(ctx context.Context) nodectl.LogSequenceNumber {
	s.mu.Lock()
	defer s.mu.Unlock()
	var max nodectl.LogSequenceNumber
	for _, lsn := range s.checkpointLSNs {
		if lsn > max {
			max = lsn
		}
	}
	return max
}
