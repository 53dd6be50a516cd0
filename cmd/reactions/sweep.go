package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abelbrown/reactions/internal/logging"
)

var flagSweepLoop bool

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove expired cache entries",
	Long:  "sweep removes expired cache entries once, or every sweep interval with --loop until interrupted.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logging.InitWriter(cmd.ErrOrStderr(), cfg.LogLevel)

		ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		a, err := build(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		if flagSweepLoop {
			m := a.svc.StartSweeper(ctx)
			cmd.Printf("sweeping the %s cache every %s\n", cfg.Cache.Backend, cfg.SweepInterval())
			<-ctx.Done()
			m.Wait()
			return nil
		}

		n, err := a.svc.Sweep(ctx)
		if err != nil {
			return err
		}
		cmd.Printf("removed %d expired entries from the %s cache\n", n, cfg.Cache.Backend)
		return nil
	},
}

func init() {
	sweepCmd.Flags().BoolVar(&flagSweepLoop, "loop", false, "keep sweeping every sweep interval")
	rootCmd.AddCommand(sweepCmd)
}
