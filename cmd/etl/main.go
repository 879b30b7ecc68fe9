package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"reviewetl/internal/config"
	"reviewetl/internal/docstore"
	"reviewetl/internal/etl"
	"reviewetl/internal/metrics"
	"reviewetl/internal/metrics/datadog"
	"reviewetl/internal/metrics/prompush"
	"reviewetl/internal/progress"
	"reviewetl/internal/storage"

	// register all backends with the factories. The config selects which to
	// use but support for all of them is built in.
	_ "reviewetl/internal/docstore/memory"
	_ "reviewetl/internal/docstore/mongo"
	_ "reviewetl/internal/storage/all"
)

// main is the entry point for the review ETL binary. It loads the run config,
// optionally initializes a metrics backend, and executes one load-and-commit
// run against the configured stores.
func main() {
	var (
		cfgPath           string
		dataDir           string
		workersFlg        int
		metricsBackendFlg string
		pushGatewayURLFlg string
		statsdAddrFlg     string
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "", "run config JSON path (empty: built-in defaults)")
	flag.StringVar(&dataDir, "data", "", "input directory (overrides config)")
	flag.IntVar(&workersFlg, "workers", 0, "chunk workers (overrides config and env ETL_WORKERS)")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend (pushgateway, datadog, none)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&statsdAddrFlg, "statsd-addr", "", "DogStatsD address for the datadog backend")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	cfg := config.Default()
	if cfgPath != "" {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			fatalf("%v", err)
		}
	}
	if dataDir != "" {
		cfg.Data.Dir = dataDir
	}
	if workers := resolveWorkers(workersFlg); workers > 0 {
		cfg.ETL.Workers = workers
	}
	if metricsBackendFlg != "" {
		cfg.Metrics.Backend = metricsBackendFlg
	}
	if pushGatewayURLFlg != "" {
		cfg.Metrics.PushgatewayURL = pushGatewayURLFlg
	}
	if statsdAddrFlg != "" {
		cfg.Metrics.StatsdAddr = statsdAddrFlg
	}

	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Printf("configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}
	if validate {
		log.Printf("configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	setupMetrics(cfg, *verbose)
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}()

	ctx := context.Background()
	start := time.Now()

	repo, err := storage.New(ctx, storage.Config{
		Kind: cfg.Stores.Relational.Kind,
		DSN:  cfg.Stores.Relational.DSN,
		Dir:  cfg.Stores.Relational.Dir,
	})
	if err != nil {
		fatalf("relational store: %v", err)
	}
	defer repo.Close()

	docs, err := docstore.New(ctx, docstore.Config{
		Kind: cfg.Stores.Document.Kind,
		URI:  cfg.Stores.Document.URI,
	})
	if err != nil {
		fatalf("document store: %v", err)
	}
	defer docs.Close(ctx)

	deps := etl.Deps{
		Repo: repo,
		Docs: docs,
		NewProgress: func(total int) progress.Sink {
			return progress.NewBar(os.Stdout, total, "Processing reviews:")
		},
		OnPhase: func(label string) func() {
			sp := progress.NewSpinner(os.Stdout, label)
			sp.Start()
			began := time.Now()
			return func() {
				sp.Stop()
				metrics.RecordStep(cfg.Metrics.Job, stepName(label), nil, time.Since(began))
			}
		},
	}

	res, err := etl.Run(ctx, cfg, deps)
	metrics.RecordStep(cfg.Metrics.Job, "run", err, time.Since(start))
	if err != nil {
		log.Fatalf("%v", err)
	}

	metrics.RecordRows(cfg.Metrics.Job, "loaded", int64(res.LoadStats.Records))
	metrics.RecordRows(cfg.Metrics.Job, "duplicate_lines", int64(res.LoadStats.DuplicateLines))
	metrics.RecordRows(cfg.Metrics.Job, "users", int64(res.Users))
	metrics.RecordRows(cfg.Metrics.Job, "items", int64(res.Items))
	metrics.RecordRows(cfg.Metrics.Job, "reviews", int64(res.Reviews))

	fmt.Printf("relational database: %s\n", res.RelationalDB)
	fmt.Printf("document database: %s\n", res.DocumentDB)
	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

// stepName maps pipeline phase labels onto stable metric step names.
func stepName(label string) string {
	switch label {
	case "loading review files":
		return "load"
	case "saving users and items":
		return "write_rel"
	case "saving reviews":
		return "write_doc"
	}
	return label
}

// resolveWorkers applies the flag → env precedence for the worker count.
func resolveWorkers(flagValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv("ETL_WORKERS"); env != "" {
		if n, err := strconv.Atoi(env); err == nil && n > 0 {
			return n
		}
		log.Printf("ignoring invalid ETL_WORKERS=%q", env)
	}
	return 0
}

// setupMetrics installs the configured metrics backend: flag and env already
// merged into cfg, env PUSHGATEWAY_URL as a last fallback for the gateway.
func setupMetrics(cfg config.Config, verbose bool) {
	backendName := cfg.Metrics.Backend
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}

	switch backendName {
	case "pushgateway":
		gwURL := cfg.Metrics.PushgatewayURL
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err := prompush.NewBackend(cfg.Metrics.Job, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init pushgateway backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: backend=pushgateway url=%v job=%v", gwURL, cfg.Metrics.Job)
		metrics.SetBackend(b)

	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{Addr: cfg.Metrics.StatsdAddr})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: backend=datadog addr=%v", cfg.Metrics.StatsdAddr)
		metrics.SetBackend(b)

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
