package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/docchat/docchat/internal/documents"
	"github.com/docchat/docchat/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API used by the terminal client.

Shuts down gracefully on SIGINT or SIGTERM. With --watch, files dropped into
the configured documents directory are ingested while the server runs.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().Bool("migrate", false, "apply migrations before serving (overrides server.auto_migrate)")
	serveCmd.Flags().Bool("watch", false, "ingest files from paths.documents_dir as they change")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	migrate := cfg.Server.AutoMigrate
	if cmd.Flags().Changed("migrate") {
		migrate, _ = cmd.Flags().GetBool("migrate")
	}
	watch, _ := cmd.Flags().GetBool("watch")

	svc, err := buildServices(ctx, migrate, true)
	if err != nil {
		return err
	}
	defer svc.close()

	srv := server.New(svc.orchestrator, svc.processor, svc.store, server.Config{
		Addr:        cfg.Server.Addr,
		ReadTimeout: time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		MaxUploadMB: int(cfg.Server.MaxUploadMB),
	}, appLogger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	if watch {
		g.Go(func() error {
			return watchDocuments(gctx, svc.processor, cfg.Paths.DocumentsDir)
		})
	}
	return g.Wait()
}

func watchDocuments(ctx context.Context, ingester documents.FileIngester, dir string) error {
	return documents.NewWatcher(ingester, documents.DefaultDebounce, appLogger).Run(ctx, dir)
}
