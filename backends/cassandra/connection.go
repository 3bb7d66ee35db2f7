// Package cassandra implements the Metadata Store (C1) on top of
// github.com/gocql/gocql: the cluster-wide catalog of tablespaces and their
// replica assignments.
package cassandra

import (
	"fmt"
	"sync"
	"time"

	"github.com/gocql/gocql"
)

// Config contains configuration for connecting to a Cassandra cluster and
// the keyspace that holds the tablespace catalog.
type Config struct {
	ClusterHosts      []string
	Keyspace          string
	Consistency       gocql.Consistency
	ConnectionTimeout time.Duration
	Authenticator     gocql.Authenticator
	ReplicationClause string
}

// Connection wraps a Cassandra session and its configuration.
type Connection struct {
	Session *gocql.Session
	Config
}

var (
	connection *Connection
	mux        sync.Mutex
)

// OpenConnection returns the existing global Connection or opens a new one
// using config, creating the keyspace and the tablespaces catalog table if
// they do not exist yet.
func OpenConnection(config Config) (*Connection, error) {
	if connection != nil {
		return connection, nil
	}
	mux.Lock()
	defer mux.Unlock()
	if connection != nil {
		return connection, nil
	}

	if config.Keyspace == "" {
		config.Keyspace = "nodectl"
	}
	if config.Consistency == gocql.Any {
		config.Consistency = gocql.LocalQuorum
	}
	if config.ReplicationClause == "" {
		config.ReplicationClause = "{'class':'SimpleStrategy', 'replication_factor':1}"
	}

	cluster := gocql.NewCluster(config.ClusterHosts...)
	cluster.Consistency = config.Consistency
	if config.ConnectionTimeout > 0 {
		cluster.ConnectTimeout = config.ConnectionTimeout
	}
	if config.Authenticator != nil {
		cluster.Authenticator = config.Authenticator
		config.Authenticator = nil
	}

	c := Connection{Config: config}
	s, err := cluster.CreateSession()
	if err != nil {
		return nil, err
	}

	if err := s.Query(fmt.Sprintf(
		"CREATE KEYSPACE IF NOT EXISTS %s WITH REPLICATION = %s;",
		config.Keyspace, config.ReplicationClause)).Exec(); err != nil {
		return nil, err
	}
	if err := s.Query(fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s.tablespaces (name text PRIMARY KEY, leader text, replicas set<text>);",
		config.Keyspace)).Exec(); err != nil {
		return nil, err
	}

	c.Session = s
	connection = &c
	return connection, nil
}

// CloseConnection closes and clears the global connection, if it exists.
func CloseConnection() {
	if connection == nil {
		return
	}
	mux.Lock()
	defer mux.Unlock()
	if connection == nil {
		return
	}
	connection.Session.Close()
	connection = nil
}
