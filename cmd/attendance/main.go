package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"attendance/internal/config"
	"attendance/internal/logging"
	"attendance/internal/storage"
)

// app is shared by all sub-commands and filled in by the root pre-run hook.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	db     *storage.DB
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := &app{}
	err := newRootCmd(a).ExecuteContext(ctx)
	a.close()
	must(err)
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "attendance",
		Short:         "Extract the participants section of a Teams attendance export",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}

	root.AddCommand(
		newRunCmd(a),
		newMailFetchCmd(a),
		newMailProcessCmd(a),
		newMailListenCmd(a),
		newHistoryCmd(a),
		newExportCmd(a),
	)
	return root
}

// setup validates the (flag-adjusted) config and opens the logger and the
// database. It is called by each command after its flags are applied.
func (a *app) setup() error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	logger, err := logging.New(a.cfg.LogLevel, a.cfg.LogFormat)
	if err != nil {
		return err
	}
	a.logger = logger

	db, err := storage.Open(a.cfg.DBPath)
	if err != nil {
		return err
	}
	a.db = db
	return nil
}

func (a *app) close() {
	if a.db != nil {
		_ = a.db.Close()
		a.db = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}
