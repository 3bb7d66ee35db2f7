package rediscache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/distsql/nodectl/encoding"
)

// Cache is an L2 cache keyed by tablespace name, fronting the Metadata
// Store's describe/listTableSpaces calls so a reconciliation pass does not
// always round-trip to Cassandra.
type Cache struct {
	conn *Connection
}

// NewCache returns a Cache backed by the given connection.
func NewCache(conn *Connection) *Cache {
	return &Cache{conn: conn}
}

func keyNotFound(err error) bool {
	return err == redis.Nil
}

// SetStruct marshals value as JSON and stores it with the given expiration.
// expiration < 0 disables caching for this call.
func (c *Cache) SetStruct(ctx context.Context, key string, value any, expiration time.Duration) error {
	if expiration < 0 {
		return nil
	}
	data, err := encoding.DefaultMarshaler.Marshal(value)
	if err != nil {
		return err
	}
	return c.conn.Client.Set(ctx, key, data, expiration).Err()
}

// GetStruct retrieves a cached value and unmarshals it into target,
// reporting whether it was found.
func (c *Cache) GetStruct(ctx context.Context, key string, target any) (bool, error) {
	data, err := c.conn.Client.Get(ctx, key).Bytes()
	if err != nil {
		if keyNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if err := encoding.DefaultMarshaler.Unmarshal(data, target); err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes key from the cache; a missing key is not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	err := c.conn.Client.Del(ctx, key).Err()
	if keyNotFound(err) {
		return nil
	}
	return err
}

// Ping tests connectivity to Redis.
func (c *Cache) Ping(ctx context.Context) error {
	if _, err := c.conn.Client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("rediscache: ping failed: %w", err)
	}
	return nil
}
