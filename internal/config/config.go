package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dreamware/torua/internal/cluster"
)

// Node is one shardd process's bootstrap configuration: identity, storage
// location, listen address, and the seed ShardConfig applied the first
// time the shard is ever configured.
type Node struct {
	Name        string              `yaml:"name"`
	IDType      cluster.IDType      `yaml:"idType"`
	DataDir     string              `yaml:"dataDir"`
	Listen      string              `yaml:"listen"`
	ShardConfig cluster.ShardConfig `yaml:"shardConfig"`
	// Peers maps a cluster.ReplicaDescriptor.Key() to that peer's HTTP
	// base URL, and ColdPeers maps a "<prefix>-<index>" cold-shard
	// address to its base URL. Both feed rpc.NewHTTPRegistry directly.
	Peers     map[string]string `yaml:"peers"`
	ColdPeers map[string]string `yaml:"coldPeers"`
}

// Validate checks the fields Load itself cannot default: a process
// without a name or listen address can't register with peers, and an
// unrecognized IDType would only surface later, as every indexed document
// failing validation.
func (n Node) Validate() error {
	if n.Name == "" {
		return fmt.Errorf("config: name is required")
	}
	if n.Listen == "" {
		return fmt.Errorf("config: listen is required")
	}
	switch n.IDType {
	case cluster.IDTypeInteger, cluster.IDTypeString:
	default:
		return fmt.Errorf("config: idType must be %q or %q, got %q", cluster.IDTypeInteger, cluster.IDTypeString, n.IDType)
	}
	return n.ShardConfig.Validate()
}

// Load reads and parses a Node config from path.
func Load(path string) (Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Node{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var n Node
	if err := yaml.Unmarshal(data, &n); err != nil {
		return Node{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if n.DataDir == "" {
		n.DataDir = "."
	}
	if v, ok := os.LookupEnv("SHARDD_LISTEN"); ok {
		n.Listen = v
	}
	if v, ok := os.LookupEnv("SHARDD_DATA_DIR"); ok {
		n.DataDir = v
	}
	if err := n.Validate(); err != nil {
		return Node{}, err
	}
	return n, nil
}
