package main

import (
	"flag"
	"math/rand"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"golang.org/x/sync/errgroup"

	"github.com/numbleroot/bintree/config"
	"github.com/numbleroot/bintree/manager"
)

// Functions

// initLogger initializes a JSON gokit-logger set
// to the according log level supplied via cli flag.
func initLogger(loglevel string) log.Logger {

	logger := log.NewJSONLogger(log.NewSyncWriter(os.Stdout))
	logger = log.With(logger,
		"ts", log.DefaultTimestampUTC,
		"caller", log.DefaultCaller,
	)

	switch strings.ToLower(loglevel) {
	case "info":
		logger = level.NewFilter(logger, level.AllowInfo())
	case "warn":
		logger = level.NewFilter(logger, level.AllowWarn())
	case "error":
		logger = level.NewFilter(logger, level.AllowError())
	default:
		logger = level.NewFilter(logger, level.AllowDebug())
	}

	return logger
}

// runWorkload drives the configured number of concurrent clients
// against the set. Every client mixes inserts, membership tests, and
// removes over a bounded element range and periodically triggers a
// compaction epoch, exercising the deferred-replay path under load.
func runWorkload(logger log.Logger, svc manager.Service, conf config.Workload) error {

	g := new(errgroup.Group)

	for i := 0; i < conf.Clients; i++ {

		client := i

		g.Go(func() error {

			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(client)))

			for op := 0; op < conf.OpsPerClient; op++ {

				elem := rng.Int63n(conf.ElemRange)

				switch op % 3 {
				case 0:
					svc.Insert(elem)
				case 1:
					_ = svc.Contains(elem)
				case 2:
					svc.Remove(elem)
				}

				if conf.GCEvery > 0 && (op+1)%conf.GCEvery == 0 {
					svc.GC()
				}
			}

			level.Debug(logger).Log(
				"msg", "workload client finished",
				"client", client,
			)

			return nil
		})
	}

	return g.Wait()
}

func main() {

	// Set CPUs usable by the process to all available.
	runtime.GOMAXPROCS(runtime.NumCPU())

	// Parse command-line flag that defines a config path.
	configFlag := flag.String("config", "config.toml", "Provide path to configuration file in TOML syntax.")
	loglevelFlag := flag.String("loglevel", "debug", "This flag sets the default logging level.")
	workloadFlag := flag.Bool("workload", false, "Append this flag to run the workload defined in the config file against the set and exit.")
	flag.Parse()

	logger := initLogger(*loglevelFlag)

	// Read configuration from file.
	conf, err := config.LoadConfig(*configFlag)
	if err != nil {
		level.Error(logger).Log(
			"msg", "failed to load the config", "err", err,
		)
		os.Exit(1)
	}

	metrics := NewSetMetrics(conf.PrometheusAddr)
	go runPromHTTP(logger, conf.PrometheusAddr)

	// Assemble the service chain: manager at the core,
	// wrapped by logging and metrics.
	var svc manager.Service
	svc = manager.NewService(logger, conf.Set)
	svc = manager.NewLoggingService(svc, logger)
	svc = manager.NewMetricsService(svc, metrics.Inserts, metrics.Contains, metrics.Removes, metrics.Epochs)

	// Loop on incoming messages in background.
	go func() {

		if err := svc.Run(); err != nil {
			level.Error(logger).Log(
				"msg", "manager loop failed",
				"err", err,
			)
			os.Exit(2)
		}
	}()

	if !*workloadFlag {
		// Without a workload there is nothing for
		// this binary to do; print usage and leave.
		flag.Usage()
		os.Exit(3)
	}

	if err := runWorkload(logger, svc, conf.Workload); err != nil {
		level.Error(logger).Log(
			"msg", "workload failed",
			"err", err,
		)
		os.Exit(4)
	}

	level.Info(logger).Log("msg", "workload finished")
}
