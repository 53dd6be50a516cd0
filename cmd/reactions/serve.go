package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/abelbrown/reactions/internal/logging"
	"github.com/abelbrown/reactions/internal/otel"
	"github.com/abelbrown/reactions/internal/reactions"
	"github.com/abelbrown/reactions/internal/server"
)

var flagPort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&flagPort, "port", 0, "listen port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if flagPort > 0 {
		cfg.Port = flagPort
	}
	if err := logging.Init(logging.Options{Dir: cfg.LogDir, Level: cfg.LogLevel}); err != nil {
		return err
	}
	defer logging.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	maint := reactions.NewMaintainer(a.svc, cfg.TTL.WarmFeeds)
	maint.Start(ctx)

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := server.NewRouter(server.NewHandler(a.svc, a.store, a.recent))
	err = server.Run(ctx, fmt.Sprintf(":%d", cfg.Port), router)

	stop()
	maint.Wait()
	a.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindShutdown, Comp: "main"})
	return err
}

// commandContext returns cmd's context or a background one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
