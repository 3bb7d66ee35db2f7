package nodectl

import (
	"encoding/json"
	"os"
	"time"
)

// Configuration holds the settings a Manager needs to start: this node's
// identity, the default tablespace it should ensure exists, polling/worker
// tunables, and the backend connection parameters passed through to the
// chosen collaborator implementations.
type Configuration struct {
	// NodeId identifies this process within the cluster.
	NodeId NodeId

	// DefaultTableSpaceName is ensured to exist (assigned to this node) on
	// start, per the Node Manager's start() contract.
	DefaultTableSpaceName TableSpaceName

	// WaitForPollInterval is the sleep between polls in waitForTableSpace
	// and waitForTable. Defaults to 100ms when zero.
	WaitForPollInterval time.Duration

	// MaxConcurrentBoots bounds how many tablespaces the Activator boots
	// concurrently within a single reconciliation pass. Zero/negative means
	// unbounded.
	MaxConcurrentBoots int64

	// WorkerPoolLimit bounds the Worker Pool's concurrent goroutines.
	// Zero/negative means unbounded, matching errgroup.SetLimit's convention.
	WorkerPoolLimit int

	// CassandraHosts are the contact points for the Metadata Store backend.
	CassandraHosts []string

	// RedisAddress is the L2 cache / distributed lock backend's address.
	RedisAddress string

	// PageStoreBaseDir is the root directory the filesystem Page Store and
	// Durable Log shard their files under.
	PageStoreBaseDir string

	// ErasureCodingEnabled opts the node's filesystem Page Store (shared by
	// every tablespace) into redundancy via internal/erasure. Never required
	// for default boot.
	ErasureCodingEnabled bool
}

// DefaultConfiguration returns a Configuration with every tunable at its
// documented default, for local development and tests.
func DefaultConfiguration(nodeId NodeId) Configuration {
	return Configuration{
		NodeId:                nodeId,
		DefaultTableSpaceName: "default",
		WaitForPollInterval:   100 * time.Millisecond,
		MaxConcurrentBoots:    4,
		WorkerPoolLimit:       0,
		PageStoreBaseDir:      "./data",
	}
}

// LoadConfiguration reads a JSON file into a Configuration, filling in
// documented defaults for any zero-valued tunable.
func LoadConfiguration(filename string) (Configuration, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Configuration{}, err
	}

	c := DefaultConfiguration("")
	if err := json.Unmarshal(data, &c); err != nil {
		return Configuration{}, err
	}
	if c.WaitForPollInterval <= 0 {
		c.WaitForPollInterval = 100 * time.Millisecond
	}
	return c, nil
}
