package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/mars-lander/internal/hub"
	"github.com/vovakirdan/mars-lander/internal/platform/web"
	"github.com/vovakirdan/mars-lander/internal/storage"
)

var (
	flagHTTPAddr string
	flagMaxJobs  int
	flagPace     time.Duration
)

var httpCmd = &cobra.Command{
	Use:   "http",
	Short: "Start the HTTP API",
	Long: `Serve levels, recorded runs and live searches over HTTP.

Endpoints:
  GET    /health
  GET    /levels, /levels/{id}, /levels/{id}/best, /levels/{id}/stats
  GET    /stats
  GET    /runs?level=&limit=, /runs/{id}, /runs/{id}/replay
  GET    /jobs, /jobs/{id}
  POST   /jobs                  {"level":"01","seed":42,"preset":"quick"}
  DELETE /jobs/{id}
  WS     /ws/jobs/{id}          stream a running job
  WS     /ws/solve/{level}      start a job and stream it

Examples:
  lander http
  lander http --addr :9000 --max-jobs 2
  lander http --pace 0 --db ./runs.db`,
	Run: runHTTP,
}

func init() {
	defaults := hub.DefaultConfig()
	httpCmd.Flags().StringVar(&flagHTTPAddr, "addr", "", "HTTP listen address (default: server.http_addr)")
	httpCmd.Flags().IntVar(&flagMaxJobs, "max-jobs", defaults.MaxJobs, "Searches allowed at once (0 = unlimited)")
	httpCmd.Flags().DurationVar(&flagPace, "pace", defaults.Pace, "Pause between generations of a job")
}

func runHTTP(_ *cobra.Command, _ []string) {
	cfg := mustConfig()
	if flagHTTPAddr != "" {
		cfg.Server.HTTPAddr = flagHTTPAddr
	}

	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not open runs database: %v\n", err)
		store = nil
	}

	hubCfg := hub.DefaultConfig()
	hubCfg.MaxJobs = flagMaxJobs
	hubCfg.Pace = flagPace

	h := hub.New(hubCfg, logger.WithPrefix("hub"))
	if store != nil {
		h.SetResultSaver(store)
	}
	h.Start()

	opts := web.Options{
		Addr:   cfg.Server.HTTPAddr,
		Levels: mustCatalog(),
		Search: cfg,
		Store:  store,
		Hub:    h,
		Logger: logger.WithPrefix("http"),
	}
	srv := web.New(opts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Starting lander HTTP server on %s\n", cfg.Server.HTTPAddr)
	fmt.Println("Press Ctrl+C to stop")

	err = srv.ListenAndServe(ctx)
	h.Close()
	if store != nil {
		store.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
