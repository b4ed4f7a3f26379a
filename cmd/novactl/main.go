// Command novactl drives a nova scheduler from the command line: run a
// parallel-for demo workload, or boot an idle scheduler and serve its
// Prometheus metrics until interrupted.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/novafiber/nova"
	"github.com/novafiber/nova/config"
	obs "github.com/novafiber/nova/observability/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "novactl",
		Usage: "drive a nova fiber scheduler",
		Commands: []*cli.Command{
			runCommand(),
			serveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "run a ParallelFor demo workload and print how long it took",

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to a scheduler YAML config file",
			},
			&cli.IntFlag{
				Name:  "n",
				Usage: "number of elements to process",
				Value: 1_000_000,
			},
		},

		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	cfg := config.Load(c.String("config"))
	n := c.Int("n")

	schedCfg := *nova.DefaultSchedulerConfig()
	schedCfg.Name = "novactl-run"
	schedCfg.WorkerCount = cfg.Workers
	schedCfg.SpinIterations = cfg.SpinIterations
	schedCfg.PanicHandler = &nova.LoggingPanicHandler{Logger: nova.NewDefaultLogger()}

	var processed int64
	started := time.Now()

	nova.StartSync(schedCfg, func(ctx context.Context) {
		nova.ParallelFor(ctx, 0, n, func(ctx context.Context, start, end int) {
			atomic.AddInt64(&processed, int64(end-start))
		})
	})

	elapsed := time.Since(started)
	fmt.Printf("processed %d elements across %d workers in %s\n", processed, cfg.Workers, elapsed)
	return nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "boot a scheduler with no workload and export its Prometheus metrics until interrupted",

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to a scheduler YAML config file",
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "address to serve /metrics on",
				Value: ":2112",
			},
		},

		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	cfg := config.Load(c.String("config"))
	addr := c.String("addr")

	reg := prom.NewRegistry()
	exporter, err := obs.NewMetricsExporter("nova", reg, obs.ExporterOptions{})
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to create metrics exporter: %v", err), 1)
	}
	poller, err := obs.NewSchedulerSnapshotPoller(reg, 200*time.Millisecond)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to create snapshot poller: %v", err), 1)
	}

	schedCfg := *nova.DefaultSchedulerConfig()
	schedCfg.Name = "novactl-serve"
	schedCfg.WorkerCount = cfg.Workers
	schedCfg.SpinIterations = cfg.SpinIterations
	schedCfg.PanicHandler = &nova.LoggingPanicHandler{Logger: nova.NewDefaultLogger()}
	schedCfg.Metrics = exporter

	sched := nova.StartAsync(schedCfg, func(ctx context.Context) {})
	defer func() {
		sched.KillAllWorkers()
		sched.Join()
	}()

	poller.AddScheduler("novactl-serve", sched)
	pollCtx, cancelPoll := context.WithCancel(context.Background())
	defer cancelPoll()
	poller.Start(pollCtx)
	defer poller.Stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		_ = server.ListenAndServe()
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	fmt.Printf("metrics endpoint listening on http://%s/metrics\n", addr)
	fmt.Println("press ctrl+c to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	return nil
}
