package utils

import (
	"io/ioutil"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/numbleroot/bintree/config"
	"github.com/numbleroot/bintree/manager"
)

// Structs

// TestEnv carries everything needed for tests
// against a running tree set.
type TestEnv struct {
	Config  *config.Config
	Logger  log.Logger
	Service manager.Service
}

// Functions

// CreateTestEnv initializes the needed environment for performing
// tests against a complete tree set: it loads the supplied config,
// builds a quiet logger, and starts a manager in the background.
func CreateTestEnv(configFilePath string) (*TestEnv, error) {

	// Read configuration from file.
	conf, err := config.LoadConfig(configFilePath)
	if err != nil {
		return nil, err
	}

	// Tests run quiet. Raise the allowed level
	// when debugging a failing protocol test.
	logger := log.NewLogfmtLogger(ioutil.Discard)
	logger = level.NewFilter(logger, level.AllowError())

	// Spin up the set and run its manager in background.
	svc := manager.NewService(logger, conf.Set)
	go func() {
		_ = svc.Run()
	}()

	// Return properly initialized and complete struct
	// representing a test environment.
	return &TestEnv{
		Config:  conf,
		Logger:  logger,
		Service: svc,
	}, nil
}
