// Package cli is the toysql command line: run a script or open a shell.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/rizalta/toysql/config"
	"github.com/rizalta/toysql/db"
	"github.com/rizalta/toysql/logging"
	"github.com/rizalta/toysql/metrics"
	"github.com/rizalta/toysql/planner"
	"github.com/rizalta/toysql/session"
)

var _ planner.Engine = (*db.Database)(nil)

type app struct {
	cfgFile string
	cfg     config.Config
	logger  *slog.Logger
	db      *db.Database
	cancel  context.CancelFunc
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:               "toysql",
		Short:             "A small SQL engine over a B+tree key value store",
		SilenceUsage:      true,
		PersistentPreRunE: a.open,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.String("data-dir", "", "directory holding the database files")
	flags.String("log-level", "", "DEBUG, INFO, WARN or ERROR")
	flags.String("log-format", "", "text or json")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address")
	flags.Bool("sync", true, "fsync every write")

	root.AddCommand(newRunCmd(a), newShellCmd(a))
	return root
}

// open loads the configuration, with explicitly set flags taking precedence
// over the environment and the config file, and opens the database.
func (a *app) open(cmd *cobra.Command, _ []string) error {
	if err := config.Load(config.EnvPrefix, a.cfgFile, cmd.Flags(), &a.cfg); err != nil {
		return err
	}

	a.logger = logging.Init(logging.Config{
		Level:  a.cfg.Log.Level,
		Format: a.cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})

	if err := os.MkdirAll(a.cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	database, err := db.NewDatabase(a.cfg.DataDir,
		db.WithSyncWrites(a.cfg.Storage.SyncWrites),
		db.WithLogger(a.logger),
	)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	a.db = database

	ctx, cancel := context.WithCancel(cmd.Context())
	a.cancel = cancel
	if a.cfg.Metrics.Addr != "" {
		metrics.Serve(ctx, a.cfg.Metrics.Addr, a.logger)
	}

	a.logger.Debug("database opened", "dir", a.cfg.DataDir, "sync", a.cfg.Storage.SyncWrites)
	return nil
}

func (a *app) close() error {
	if a.cancel != nil {
		a.cancel()
	}
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// closing runs fn, then closes the database whether fn failed or not.
func (a *app) closing(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		var result *multierror.Error
		if err := fn(cmd, args); err != nil {
			result = multierror.Append(result, err)
		}
		if err := a.close(); err != nil {
			result = multierror.Append(result, err)
		}
		return result.ErrorOrNil()
	}
}

func (a *app) session() *session.Session {
	return session.New(a.db, a.logger)
}

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run <file.sql>",
		Short: "Run the statements of a script file",
		Args:  cobra.ExactArgs(1),
		RunE: a.closing(func(cmd *cobra.Command, args []string) error {
			resp, err := a.session().ParseFile(args[0])
			if resp == nil {
				return err
			}
			if renderErr := resp.Render(cmd.OutOrStdout()); renderErr != nil {
				return renderErr
			}
			return err
		}),
	}
}
