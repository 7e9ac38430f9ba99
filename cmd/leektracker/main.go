package main

import (
	"context"
	"errors"
	"fmt"
	"leekwars-tracker/internal/config"
	"leekwars-tracker/internal/domain"
	fxmodules "leekwars-tracker/internal/fx"
	"leekwars-tracker/internal/logger"
	"leekwars-tracker/internal/service"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

// errStoreOpen marks failures to open a leek's store so they map to their
// own exit code.
var errStoreOpen = errors.New("cannot open store")

const (
	exitOK = iota
	exitFailure
	exitStoreIO
)

type app struct {
	cfg       *config.Config
	logger    zerolog.Logger
	history   *service.HistoryService
	ingest    *service.IngestService
	migration *service.MigrationService
	stats     *service.StatsService
	fetch     *service.FetchService
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string) int {
	root := newRootCmd(&app{})
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "error:", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errStoreOpen) && domain.KindOf(err) == domain.KindIO:
		return exitStoreIO
	}
	return exitFailure
}

func applyLogLevel(cfg *config.Config) {
	zerolog.SetGlobalLevel(logger.ParseLevel(cfg.LogLevel))
}

// load builds the service graph. Help and usage errors never reach it.
func (a *app) load() error {
	if a.cfg != nil {
		return nil
	}
	fxApp := fx.New(
		fxmodules.Module,
		fx.NopLogger,
		fx.Invoke(applyLogLevel),
		fx.Populate(&a.cfg, &a.logger, &a.history, &a.ingest, &a.migration, &a.stats, &a.fetch),
	)
	return fxApp.Err()
}

func (a *app) open(ctx context.Context, leekID int64) (*service.Session, error) {
	sess, err := a.history.Open(ctx, leekID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errStoreOpen, err)
	}
	return sess, nil
}

func (a *app) openForRead(ctx context.Context, leekID int64) (*service.Session, error) {
	sess, err := a.history.OpenForRead(ctx, leekID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("no history for leek %d at %s: %w", leekID, a.history.StorePath(leekID), domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errStoreOpen, err)
	}
	return sess, nil
}

// withStore runs fn against the store of the leek named by the first
// argument and closes it afterwards.
func (a *app) withStore(readOnly bool, fn func(cmd *cobra.Command, sess *service.Session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		leekID, err := parseID("leek_id", args[0])
		if err != nil {
			return err
		}
		if err := a.load(); err != nil {
			return err
		}
		open := a.open
		if readOnly {
			open = a.openForRead
		}
		sess, err := open(cmd.Context(), leekID)
		if err != nil {
			return err
		}
		defer func() {
			if err := sess.Close(); err != nil {
				a.logger.Warn().Err(err).Int64("leek_id", leekID).Msg("failed to close store")
			}
		}()
		return fn(cmd, sess, args[1:])
	}
}

func parseID(name, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q: %w", name, s, domain.ErrValidation)
	}
	return id, nil
}

func parseIDs(name string, args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseID(name, arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "leektracker",
		Short:         "Fight history and opponent statistics for LeekWars leeks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newStatsCmd(a),
		newMigrateCmd(a),
		newIngestCmd(a),
		newRebuildCmd(a),
		newVerifyCmd(a),
		newExportCmd(a),
		newSelectCmd(a),
		newFetchCmd(a),
		newServeCmd(),
	)
	return root
}
