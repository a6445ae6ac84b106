package config_test

import (
	"testing"

	"github.com/numbleroot/bintree/config"
)

// Functions

// TestLoadConfig executes a black-box test on the
// implemented functionalities to load a TOML config file.
func TestLoadConfig(t *testing.T) {

	// Try to load a broken config file. This should fail.
	_, err := config.LoadConfig("broken-config.toml")
	if err == nil {
		t.Fatal("[config.TestLoadConfig] Expected fail while loading broken-config.toml but received 'nil' error.")
	}

	// A config with an inbox too small for the copy
	// protocol has to be rejected as well.
	_, err = config.LoadConfig("small-inbox-config.toml")
	if err == nil {
		t.Fatal("[config.TestLoadConfig] Expected fail while loading small-inbox-config.toml but received 'nil' error.")
	}

	// Now load a valid config.
	conf, err := config.LoadConfig("test-config.toml")
	if err != nil {
		t.Fatalf("[config.TestLoadConfig] Expected success while loading test-config.toml but received: '%s'\n", err.Error())
	}

	// Check for test success.
	if conf.Set.InboxSize != 8 {
		t.Fatalf("[config.TestLoadConfig] Expected '%d' but received '%d'\n", 8, conf.Set.InboxSize)
	}

	if conf.Workload.Clients != 4 {
		t.Fatalf("[config.TestLoadConfig] Expected '%d' but received '%d'\n", 4, conf.Workload.Clients)
	}

	if conf.PrometheusAddr != "" {
		t.Fatalf("[config.TestLoadConfig] Expected empty PrometheusAddr but received '%s'\n", conf.PrometheusAddr)
	}
}
