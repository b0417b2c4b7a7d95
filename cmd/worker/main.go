package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samirnavas/who-gets-it/internal/app"
	"github.com/samirnavas/who-gets-it/internal/auth"
	"github.com/samirnavas/who-gets-it/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	log  *zap.Logger
	cfg  *config.Config
	once bool
)

var rootCmd = &cobra.Command{
	Use:   "worker",
	Short: "worker ends auctions whose end time has passed",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		cfg.Validate(log)
	},
	RunE: runSweeper,
}

var bootstrapAdminCmd = &cobra.Command{
	Use:   "bootstrap-admin <username>",
	Short: "Create or promote a user to admin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		user, err := a.Users.EnsureAdmin(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		cmd.Printf("%s (%s) is an admin\n", user.Username, user.ID)
		return nil
	},
}

var signAssertionCmd = &cobra.Command{
	Use:   "sign-assertion <username>",
	Short: "Print an identity assertion for /auth/register and /auth/token (development)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.AuthAssertionSecret == "" {
			return auth.ErrAssertionSecretMissing
		}
		cmd.Println(auth.SignIdentityAssertion(cfg.AuthAssertionSecret, args[0], time.Now()))
		return nil
	},
}

func runSweeper(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	sweep := func() {
		started := time.Now()
		ended, err := a.Auctions.SweepExpiredAuctions(ctx)
		if err != nil {
			log.Error("expiry sweep failed", zap.Error(err))
			return
		}
		if len(ended) > 0 {
			log.Info("expiry sweep finished", zap.Int("ended", len(ended)), zap.Duration("took", time.Since(started)))
		}
	}

	if once {
		sweep()
		return nil
	}

	log.Info("worker started", zap.Duration("interval", cfg.SweepInterval))
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	sweep()
	for {
		select {
		case <-ticker.C:
			sweep()
		case <-ctx.Done():
			log.Info("shutting down worker")
			return nil
		}
	}
}

func main() {
	log, _ = zap.NewProduction()
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.Flags().BoolVar(&once, "once", false, "run a single sweep and exit (for cron)")
	rootCmd.AddCommand(bootstrapAdminCmd, signAssertionCmd)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatal("worker failed", zap.Error(err))
	}
}
