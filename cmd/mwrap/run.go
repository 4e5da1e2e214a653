package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/AxxAL/mwrap/pkg/lib"
	"github.com/AxxAL/mwrap/pkg/lib/config"
	"github.com/AxxAL/mwrap/pkg/lib/console"
	"github.com/AxxAL/mwrap/pkg/lib/metrics"
	"github.com/AxxAL/mwrap/pkg/lib/process"
	"github.com/AxxAL/mwrap/pkg/lib/schedule"
	"github.com/AxxAL/mwrap/pkg/lib/supervisor"
)

type options struct {
	configPath      string
	dir             string
	java            string
	jar             string
	stopTimeout     time.Duration
	shutdownTimeout time.Duration
	metricsAddr     string
	verbose         bool
}

// run supervises the server until ctx is cancelled. Console EOF does not end the run, so
// mwrap keeps working with stdin detached (e.g. under a service manager).
func run(ctx context.Context, opts options, in io.Reader, out, errOut io.Writer) error {
	logger := log.New(errOut, "mwrap: ", log.LstdFlags)
	if opts.verbose {
		process.SetLogger(log.New(errOut, "mwrap: process: ", log.LstdFlags))
	}

	unlock, err := acquireLock(opts.dir)
	if err != nil {
		return err
	}
	defer unlock()

	configPath := opts.configPath
	if !filepath.IsAbs(configPath) {
		configPath = filepath.Join(opts.dir, configPath)
	}
	cfg := config.Load(configPath, logger)

	params := lib.NewLaunchParams(cfg.MemorySize)
	params.Executable = opts.java
	params.Jar = opts.jar
	params.Dir = opts.dir

	var collector metrics.Collector = metrics.NewNoop()
	if opts.metricsAddr != "" {
		prom := metrics.NewPrometheus("mwrap")
		srv, addr, err := serveMetrics(opts.metricsAddr, prom, logger)
		if err != nil {
			return err
		}
		defer srv.Close()
		logger.Printf("Serving metrics on http://%s/metrics", addr)
		collector = prom
	}

	sup := supervisor.New(params,
		supervisor.WithOutput(out),
		supervisor.WithLogger(logger),
		supervisor.WithMetrics(collector),
		supervisor.WithStopTimeout(opts.stopTimeout),
	)

	var sched *schedule.Scheduler
	if cfg.AutoRestart.Enabled {
		desc := schedule.Descriptor{
			Enabled:    cfg.AutoRestart.Enabled,
			Expression: cfg.AutoRestart.CronTime,
			TimeZone:   cfg.AutoRestart.TimeZone,
		}
		sched, err = schedule.New(desc, func(ctx context.Context) error {
			return sup.RestartFor(ctx, metrics.TriggerSchedule)
		}, logger)
		if err != nil {
			return fmt.Errorf("auto restart: %w", err)
		}
	}

	if err := sup.Start(ctx); err != nil {
		return err
	}

	if sched != nil {
		sched.Start()
		logger.Printf("Auto restart enabled (%q in %s), next restart at %s.",
			cfg.AutoRestart.CronTime, sched.Location(), sched.Next(time.Now()).Format(time.RFC1123))
	}

	err = console.New(sup, in, logger).Run(ctx)
	switch {
	case ctx.Err() != nil:
	case err == nil:
		logger.Println("Console input closed; send SIGINT or SIGTERM to stop.")
		<-ctx.Done()
	default:
		logger.Printf("Console input failed: %v", err)
		<-ctx.Done()
	}

	logger.Println("Shutting down.")
	if sched != nil {
		// A restart in flight is refused by Shutdown below.
		sched.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.shutdownTimeout)
	defer cancel()
	if err := sup.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Shutdown: %v", err)
	}
	return nil
}
