// Package rediscache provides an L2 cache in front of the Metadata Store's
// describe/listTableSpaces calls, and a distributed lock a multi-process
// deployment uses to serialize Activator reconciliation passes across node
// processes sharing one catalog.
package rediscache

import (
	"crypto/tls"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Options holds configuration for connecting to a Redis server or cluster.
type Options struct {
	Address   string
	Password  string
	DB        int
	TLSConfig *tls.Config
}

// DefaultOptions returns an Options with localhost defaults (no password, DB 0).
func DefaultOptions() Options {
	return Options{Address: "localhost:6379"}
}

// Connection wraps a redis.Client and the Options used to create it.
type Connection struct {
	Client  *redis.Client
	Options Options
}

var (
	connection *Connection
	mux        sync.Mutex
)

// OpenConnection initializes and returns the package-level singleton
// connection. Subsequent calls return the same connection.
func OpenConnection(options Options) *Connection {
	if connection != nil {
		return connection
	}
	mux.Lock()
	defer mux.Unlock()
	if connection != nil {
		return connection
	}
	connection = &Connection{
		Client: redis.NewClient(&redis.Options{
			TLSConfig: options.TLSConfig,
			Addr:      options.Address,
			Password:  options.Password,
			DB:        options.DB,
		}),
		Options: options,
	}
	return connection
}

// CloseConnection closes the package-level singleton connection, if present.
func CloseConnection() error {
	mux.Lock()
	defer mux.Unlock()
	if connection == nil || connection.Client == nil {
		return nil
	}
	err := connection.Client.Close()
	connection = nil
	return err
}
