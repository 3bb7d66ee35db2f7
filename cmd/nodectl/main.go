// Command nodectl boots a single node's control plane: it loads a
// Configuration, wires a collaborator set (in-memory for local development,
// or Cassandra/filesystem for a real deployment), starts the Node Manager,
// and serves until interrupted. Trimmed down from the teacher's
// tools/httpserver-style main wiring (flag parsing, then slog setup, then
// construct-and-run) to stdlib flag + log/slog only: this binary has no HTTP
// surface of its own, matching spec.md §6's "no files, sockets, or CLI are
// defined at this layer" — this is a harness that exercises the Node
// Manager API, not a new interface on top of it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/distsql/nodectl"
	"github.com/distsql/nodectl/backends/cassandra"
	"github.com/distsql/nodectl/backends/filelog"
	"github.com/distsql/nodectl/backends/memstore"
	"github.com/distsql/nodectl/backends/pagestore"
	"github.com/distsql/nodectl/backends/rediscache"
	"github.com/distsql/nodectl/internal/erasure"
)

// defaultDataShards and defaultParityShards size the Reed-Solomon codec when
// erasure coding is enabled; tolerates any 2 of 6 shards missing or corrupt.
const (
	defaultDataShards   = 4
	defaultParityShards = 2
)

func main() {
	var (
		configFile = flag.String("config", "", "path to a JSON Configuration file (optional)")
		nodeId     = flag.String("node-id", "", "this node's identity; overrides the config file's NodeId")
		backend    = flag.String("backend", "memory", "collaborator backend: 'memory' or 'cassandra'")
		showVer    = flag.Bool("version", false, "print the version and exit")
	)
	flag.Parse()

	if *showVer {
		fmt.Println(nodectl.Version)
		return
	}

	nodectl.ConfigureLogging()

	cfg, err := loadConfig(*configFile, *nodeId)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	metadata, pages, newLog, distLock, closeBackend, err := wireBackend(*backend, cfg)
	if err != nil {
		slog.Error("failed to wire backend", "backend", *backend, "error", err)
		os.Exit(1)
	}
	defer closeBackend()

	factory := memstore.NewTableSpaceManagerFactory()
	manager := nodectl.NewManager(cfg, metadata, pages, factory, newLog)
	if distLock != nil {
		manager.SetDistributedLock(distLock)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := manager.Start(ctx); err != nil {
		slog.Error("failed to start node manager", "error", err)
		os.Exit(1)
	}
	slog.Info("node manager started", "nodeId", cfg.NodeId, "backend", *backend)

	<-ctx.Done()
	slog.Info("shutting down")
	if err := manager.Close(context.Background()); err != nil {
		slog.Error("error during shutdown", "error", err)
		os.Exit(1)
	}
}

func loadConfig(path string, nodeId string) (nodectl.Configuration, error) {
	var cfg nodectl.Configuration
	var err error
	if path != "" {
		cfg, err = nodectl.LoadConfiguration(path)
		if err != nil {
			return nodectl.Configuration{}, err
		}
	} else {
		cfg = nodectl.DefaultConfiguration("")
	}
	if nodeId != "" {
		cfg.NodeId = nodectl.NodeId(nodeId)
	}
	if cfg.NodeId == "" {
		return nodectl.Configuration{}, fmt.Errorf("node id is required: pass -node-id or set NodeId in the config file")
	}
	return cfg, nil
}

// wireBackend constructs the Metadata Store and Page Store for the chosen
// backend, plus the per-tablespace Log constructor the Activator calls on
// boot and, when Redis is configured, the distributed lock serializing
// reconciliation across node processes. It returns a single close func that
// tears down anything not already owned by the Node Manager's own
// start/close lifecycle (e.g. a Cassandra/Redis connection pool opened at
// process scope).
func wireBackend(backend string, cfg nodectl.Configuration) (nodectl.MetadataStore, nodectl.PageStore, func(nodectl.TableSpaceName) (nodectl.DurableLog, error), nodectl.DistributedLock, func(), error) {
	switch backend {
	case "memory":
		metadata := memstore.NewMetadataStore()
		pages := memstore.NewPageStore()
		newLog := func(name nodectl.TableSpaceName) (nodectl.DurableLog, error) {
			return memstore.NewLog(), nil
		}
		return metadata, pages, newLog, nil, func() {}, nil

	case "cassandra":
		conn, err := cassandra.OpenConnection(cassandra.Config{ClusterHosts: cfg.CassandraHosts})
		if err != nil {
			return nil, nil, nil, nil, nil, err
		}

		var codec *erasure.Codec
		if cfg.ErasureCodingEnabled {
			codec, err = erasure.NewCodec(defaultDataShards, defaultParityShards)
			if err != nil {
				return nil, nil, nil, nil, nil, err
			}
		}
		pages := pagestore.New(cfg.PageStoreBaseDir, codec)

		var redisConn *rediscache.Connection
		var cache *rediscache.Cache
		var distLock nodectl.DistributedLock
		if cfg.RedisAddress != "" {
			opts := rediscache.DefaultOptions()
			opts.Address = cfg.RedisAddress
			redisConn = rediscache.OpenConnection(opts)
			cache = rediscache.NewCache(redisConn)
			distLock = rediscache.NewActivatorLock(rediscache.NewLocker(redisConn))
		}

		metadata := cassandra.NewMetadataStore(conn, cache)

		newLog := func(name nodectl.TableSpaceName) (nodectl.DurableLog, error) {
			return filelog.New(cfg.PageStoreBaseDir, name), nil
		}

		closeAll := func() {
			cassandra.CloseConnection()
			if redisConn != nil {
				_ = rediscache.CloseConnection()
			}
		}
		return metadata, pages, newLog, distLock, closeAll, nil

	default:
		return nil, nil, nil, nil, nil, fmt.Errorf("unknown backend %q", backend)
	}
}
