package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"yt-publish-scheduler/internal/httpapi"
	"yt-publish-scheduler/internal/jobs"
)

const shutdownGrace = 15 * time.Second

// runServe starts the standing jobs and the HTTP trigger API, and runs
// until interrupted.
func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", "", "listen address (overrides HTTP_ADDR)")
	noJobs := fs.Bool("no-jobs", false, "serve the HTTP API without the standing jobs")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	scheduler := jobs.NewScheduler(a.cfg.Location())
	if !*noJobs {
		if err := jobs.RegisterStanding(scheduler, a.pipeline, a.reconcile); err != nil {
			return err
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	listenAddr := a.cfg.HTTPAddr
	if *addr != "" {
		listenAddr = *addr
	}
	api := &httpapi.Server{
		Pipeline:  a.pipeline,
		Reconcile: a.reconcile,
		Store:     a.store,
	}
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[serve] listening on %s", listenAddr)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-sigCh:
		fmt.Printf("received %s, shutting down\n", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(ctx)
}
