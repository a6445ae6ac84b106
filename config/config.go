package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Structs

// Config holds all information parsed from
// supplied config file.
type Config struct {
	PrometheusAddr string
	Set            Set
	Workload       Workload
}

// Set configures the tree set itself.
type Set struct {

	// InboxSize is the channel buffer of every actor inbox in the
	// system, the manager's included.
	InboxSize int
}

// Workload describes the demo workload the binary
// can drive against the set.
type Workload struct {
	Clients      int
	OpsPerClient int
	ElemRange    int64
	GCEvery      int
}

// Functions

// LoadConfig takes in the path to the main config file in TOML syntax
// and places the values from the file in the corresponding struct.
func LoadConfig(configFile string) (*Config, error) {

	conf := new(Config)

	// Parse values from TOML file into struct.
	_, err := toml.DecodeFile(configFile, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read in TOML config file at '%s' with: %v", configFile, err)
	}

	// A node can receive up to three copy-protocol messages while
	// mid-copy. Anything below that allows a completed child to block
	// on its parent's inbox.
	if conf.Set.InboxSize < 4 {
		return nil, fmt.Errorf("Set.InboxSize has to be at least 4, got %d", conf.Set.InboxSize)
	}

	if conf.Workload.Clients < 1 || conf.Workload.OpsPerClient < 1 {
		return nil, fmt.Errorf("workload needs at least one client performing at least one operation")
	}

	if conf.Workload.ElemRange < 1 {
		return nil, fmt.Errorf("Workload.ElemRange has to be positive, got %d", conf.Workload.ElemRange)
	}

	if conf.Workload.GCEvery < 0 {
		return nil, fmt.Errorf("Workload.GCEvery must not be negative, got %d", conf.Workload.GCEvery)
	}

	return conf, nil
}
