package cassandra

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gocql/gocql"

	"github.com/distsql/nodectl"
	"github.com/distsql/nodectl/backends/rediscache"
)

// describeCacheTTL bounds how long a cached describe/list result may be
// served before a reconciliation pass falls back to Cassandra, trading a
// bounded staleness window for fewer round-trips on a busy cluster.
const describeCacheTTL = 5 * time.Second

const tableSpaceListCacheKey = "nodectl:tablespaces:list"

func describeCacheKey(name nodectl.TableSpaceName) string {
	return "nodectl:tablespace:" + string(name)
}

// MetadataStore implements nodectl.MetadataStore against the tablespaces
// table created by OpenConnection. cache, when non-nil, fronts Describe and
// ListTableSpaces with an L2 cache invalidated on Register.
type MetadataStore struct {
	conn  *Connection
	cache *rediscache.Cache
}

// NewMetadataStore wraps conn as a nodectl.MetadataStore. cache may be nil,
// in which case every call round-trips to Cassandra directly.
func NewMetadataStore(conn *Connection, cache *rediscache.Cache) *MetadataStore {
	return &MetadataStore{conn: conn, cache: cache}
}

// Start only checks that a session is open: OpenConnection already
// established it and created the schema. It fails if the connection is
// missing or closed.
func (s *MetadataStore) Start(ctx context.Context) error {
	if s.conn == nil || s.conn.Session == nil {
		return fmt.Errorf("cassandra metadata store: connection is closed, call OpenConnection first")
	}
	return nil
}

// Close closes the underlying Cassandra connection.
func (s *MetadataStore) Close(ctx context.Context) error {
	CloseConnection()
	return nil
}

// EnsureDefaultTableSpace idempotently registers a default tablespace led
// by and replicated to nodeId, tolerating a concurrent duplicate insert.
func (s *MetadataStore) EnsureDefaultTableSpace(ctx context.Context, nodeId nodectl.NodeId, defaultName nodectl.TableSpaceName) error {
	_, err := s.describe(ctx, defaultName)
	if err == nil {
		return nil
	}

	descriptor, buildErr := nodectl.NewTableSpaceDescriptorBuilder(defaultName).
		Leader(nodeId).
		AddReplica(nodeId).
		Build()
	if buildErr != nil {
		return buildErr
	}
	if err := s.Register(ctx, descriptor); err != nil && !isDuplicate(err) {
		return err
	}
	return nil
}

// ListTableSpaces returns every tablespace name known to the catalog. When a
// cache is configured, a pass within describeCacheTTL of the last one is
// served from Redis instead of round-tripping to Cassandra.
func (s *MetadataStore) ListTableSpaces(ctx context.Context) ([]nodectl.TableSpaceName, error) {
	if s.cache != nil {
		var cached []nodectl.TableSpaceName
		if found, err := s.cache.GetStruct(ctx, tableSpaceListCacheKey, &cached); err != nil {
			slog.Warn("cassandra: tablespace list cache read errored, falling back to Cassandra", "error", err)
		} else if found {
			return cached, nil
		}
	}

	iter := s.conn.Session.Query(
		fmt.Sprintf("SELECT name FROM %s.tablespaces;", s.conn.Keyspace),
	).WithContext(ctx).Iter()

	var names []nodectl.TableSpaceName
	var name string
	for iter.Scan(&name) {
		names = append(names, nodectl.TableSpaceName(name))
	}
	if err := iter.Close(); err != nil {
		return nil, nodectl.NewError(nodectl.MetadataUnavailable, err, nil)
	}

	if s.cache != nil {
		if err := s.cache.SetStruct(ctx, tableSpaceListCacheKey, names, describeCacheTTL); err != nil {
			slog.Warn("cassandra: failed to populate tablespace list cache", "error", err)
		}
	}
	return names, nil
}

// Describe returns the descriptor for name, failing if absent. When a cache
// is configured, a fresh cached descriptor is served instead of querying
// Cassandra.
func (s *MetadataStore) Describe(ctx context.Context, name nodectl.TableSpaceName) (nodectl.TableSpaceDescriptor, error) {
	if s.cache != nil {
		var cached nodectl.TableSpaceDescriptor
		if found, err := s.cache.GetStruct(ctx, describeCacheKey(name), &cached); err != nil {
			slog.Warn("cassandra: describe cache read errored, falling back to Cassandra", "tableSpace", name, "error", err)
		} else if found {
			return cached, nil
		}
	}

	descriptor, err := s.describe(ctx, name)
	if err != nil {
		return descriptor, err
	}

	if s.cache != nil {
		if err := s.cache.SetStruct(ctx, describeCacheKey(name), descriptor, describeCacheTTL); err != nil {
			slog.Warn("cassandra: failed to populate describe cache", "tableSpace", name, "error", err)
		}
	}
	return descriptor, nil
}

func (s *MetadataStore) describe(ctx context.Context, name nodectl.TableSpaceName) (nodectl.TableSpaceDescriptor, error) {
	var leader string
	var replicas []string
	err := s.conn.Session.Query(
		fmt.Sprintf("SELECT leader, replicas FROM %s.tablespaces WHERE name = ?;", s.conn.Keyspace),
		string(name),
	).WithContext(ctx).Scan(&leader, &replicas)
	if err == gocql.ErrNotFound {
		return nodectl.TableSpaceDescriptor{}, nodectl.NewError(nodectl.MetadataUnavailable, fmt.Errorf("tablespace %q not found", name), name)
	}
	if err != nil {
		return nodectl.TableSpaceDescriptor{}, nodectl.NewError(nodectl.MetadataUnavailable, err, name)
	}

	replicaSet := make(map[nodectl.NodeId]struct{}, len(replicas))
	for _, r := range replicas {
		replicaSet[nodectl.NodeId(r)] = struct{}{}
	}
	return nodectl.TableSpaceDescriptor{
		Name:     name,
		Leader:   nodectl.NodeId(leader),
		Replicas: replicaSet,
	}, nil
}

// Register atomically inserts descriptor using a lightweight transaction
// (IF NOT EXISTS), failing on duplicate name.
func (s *MetadataStore) Register(ctx context.Context, descriptor nodectl.TableSpaceDescriptor) error {
	replicas := make([]string, 0, len(descriptor.Replicas))
	for r := range descriptor.Replicas {
		replicas = append(replicas, string(r))
	}

	applied, err := s.conn.Session.Query(
		fmt.Sprintf("INSERT INTO %s.tablespaces (name, leader, replicas) VALUES (?, ?, ?) IF NOT EXISTS;", s.conn.Keyspace),
		string(descriptor.Name), string(descriptor.Leader), replicas,
	).WithContext(ctx).ScanCAS()
	if err != nil {
		return nodectl.NewError(nodectl.MetadataUnavailable, err, descriptor.Name)
	}
	if !applied {
		return nodectl.NewError(nodectl.DDLError, fmt.Errorf("tablespace %q already exists", descriptor.Name), descriptor.Name)
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, tableSpaceListCacheKey); err != nil {
			slog.Warn("cassandra: failed to invalidate tablespace list cache", "error", err)
		}
	}
	return nil
}

func isDuplicate(err error) bool {
	nodeErr, ok := err.(*nodectl.Error)
	return ok && nodeErr.Code == nodectl.DDLError
}
