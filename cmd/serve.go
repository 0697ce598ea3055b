package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/podcast-rag/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the HTTP server with /retrieve, /ask and a /ws chat socket.
With --ingest the corpus is loaded first if it has not been already.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "port to listen on (overrides config)")
	serveCmd.Flags().Bool("ingest", false, "ingest the corpus before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if doIngest, _ := cmd.Flags().GetBool("ingest"); doIngest {
		result, err := a.ingest(ctx, ingestOptions(a.cfg), false)
		if err != nil {
			return describeIngestError(err, a.cfg)
		}
		if !result.Skipped {
			a.logger.Info("corpus ingested", "units", result.Units, "duration", result.Duration)
		}
	}
	a.warnIfEmpty(ctx)

	var asker server.Asker
	if responder, err := a.newResponder(0); err != nil {
		a.logger.Warn("answer generation disabled", "error", err)
	} else {
		asker = responder
	}

	port := a.cfg.Server.Port
	if p, _ := cmd.Flags().GetInt("port"); p > 0 {
		port = p
	}

	srv := server.New(server.Config{
		Port:           port,
		AllowAll:       a.cfg.Server.AllowAll,
		RequestTimeout: time.Duration(a.cfg.Server.RequestTimeoutSeconds) * time.Second,
	}, a.retriever, asker, a.logger)

	go func() {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nShutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(os.Stderr, "podrag server %s starting on port %d\n", Version, port)
	fmt.Fprintf(os.Stderr, "  Index: %s (%s)\n", a.index.Name(), a.cfg.Index.Backend)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
