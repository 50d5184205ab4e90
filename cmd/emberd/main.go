// Command emberd is the server binary: it wires config, logging, metrics,
// and the connection driver together, generalizing the teacher's
// example/memory_kv/server.go flag-and-go main into a layered-config
// equivalent (see internal/config).
package main

import (
	"flag"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"

	"go.uber.org/zap"

	"github.com/emberkv/ember"
	"github.com/emberkv/ember/internal/config"
	"github.com/emberkv/ember/internal/logging"
	"github.com/emberkv/ember/internal/metrics"
	"github.com/emberkv/ember/pkg/store"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	configPathFlags := flag.NewFlagSet("emberd-config", flag.ContinueOnError)
	configPath := configPathFlags.String("config", "", "path to an optional YAML config file")
	configPathFlags.SetOutput(os.Stderr)
	// Parse just -config up front so Load can still own every other flag;
	// SkipErrorLogging isn't needed since unknown flags are expected here
	// and handled by config.Load's own FlagSet.
	_ = configPathFlags.Parse(firstConfigFlag(args))

	cfg, err := config.Load(*configPath, args)
	if err != nil {
		return err
	}

	log, err := logging.New(logging.Config{
		Level:       cfg.LogLevel,
		Development: cfg.LogDevelopment,
		FilePath:    cfg.LogFile,
	})
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		go serveDebug(cfg.MetricsAddr, m, log)
	}

	srv := ember.NewServer(store.New(), ember.Options{
		Multicore:    cfg.Multicore,
		NumEventLoop: cfg.NumEventLoop,
		Logger:       log,
		Metrics:      m,
	})

	log.Info("starting emberd", zap.String("addr", cfg.BindAddr))
	return ember.ListenAndServe(cfg.BindAddr, ember.Options{
		Multicore:    cfg.Multicore,
		NumEventLoop: cfg.NumEventLoop,
	}, srv)
}

// firstConfigFlag pulls just the first "-config"/"--config" pair (or
// "-config=value" form) out of args, so it can be parsed before the full
// config.Load flag set exists without also trying to validate every other
// flag twice.
func firstConfigFlag(args []string) []string {
	for i, a := range args {
		switch {
		case a == "-config" || a == "--config":
			if i+1 < len(args) {
				return []string{"-config", args[i+1]}
			}
		case len(a) > 8 && a[:8] == "-config=":
			return []string{a}
		case len(a) > 9 && a[:9] == "--config=":
			return []string{"-config=" + a[9:]}
		}
	}
	return nil
}

// serveDebug mounts Prometheus metrics and pprof on one side listener,
// following packetd-packetd's habit of pairing its metrics endpoint with
// Go's runtime profiler on the same debug port.
func serveDebug(addr string, m *metrics.Metrics, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	log.Info("serving metrics and pprof", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warn("debug listener stopped", zap.Error(err))
	}
}
