// Package cli wires the cobra command tree: migrations, on-demand
// aggregation, baseline/limit recalculation, and reconciliation.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	appagg "github.com/mutisyag/ozone-sub000/internal/application/aggregation"
	appbaseline "github.com/mutisyag/ozone-sub000/internal/application/baseline"
	"github.com/mutisyag/ozone-sub000/internal/application/lifecycle"
	applimits "github.com/mutisyag/ozone-sub000/internal/application/limits"
	"github.com/mutisyag/ozone-sub000/internal/application/reconciliation"
	"github.com/mutisyag/ozone-sub000/internal/config"
	"github.com/mutisyag/ozone-sub000/internal/domain/compliance"
	"github.com/mutisyag/ozone-sub000/internal/domain/party"
	"github.com/mutisyag/ozone-sub000/internal/domain/period"
	"github.com/mutisyag/ozone-sub000/internal/infrastructure/database/postgres"
	"github.com/mutisyag/ozone-sub000/internal/infrastructure/database/postgres/repositories"
	"github.com/mutisyag/ozone-sub000/internal/infrastructure/monitoring/logging"
	"github.com/mutisyag/ozone-sub000/internal/infrastructure/monitoring/prometheus"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
}

// app bundles everything a subcommand needs once the database is reachable.
type app struct {
	cfg     *config.Config
	log     logging.Logger
	conn    *postgres.Connection
	metrics *prometheus.Metrics

	parties   party.Repository
	periods   period.Repository
	baselines compliance.BaselineRepository
	limits    compliance.LimitRepository

	engine         *appagg.Engine
	lifecycle      *lifecycle.Service
	calcBaselines  *appbaseline.Calculator
	calcLimits     *applimits.Calculator
	reconciliation *reconciliation.Service
}

// loadConfig resolves configuration from the --config path or, when no path
// is given, from environment variables only.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigPath != "" {
		cfg, err = config.Load(opts.ConfigPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	return cfg, nil
}

// newApp connects to the database and wires the service graph.
func newApp(opts *RootOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	log, err := logging.NewLogger(logging.Config{
		Level:            cfg.Log.Level,
		Format:           cfg.Log.Format,
		OutputPaths:      cfg.Log.OutputPaths,
		ErrorOutputPaths: cfg.Log.ErrorOutputPaths,
	})
	if err != nil {
		return nil, err
	}

	conn, err := postgres.NewConnection(cfg.Database, log)
	if err != nil {
		return nil, err
	}

	metrics := prometheus.New()

	a := &app{
		cfg:     cfg,
		log:     log,
		conn:    conn,
		metrics: metrics,

		parties:   repositories.NewPostgresPartyRepo(conn, log),
		periods:   repositories.NewPostgresPeriodRepo(conn, log),
		baselines: repositories.NewPostgresBaselineRepo(conn, log),
		limits:    repositories.NewPostgresLimitRepo(conn, log),
	}

	substances := repositories.NewPostgresSubstanceRepo(conn, log)
	prodcons := repositories.NewPostgresProdConsRepo(conn, log)
	store := repositories.NewStore(conn, log)

	a.engine = appagg.NewEngine(a.parties, a.periods, substances, log, metrics)
	a.lifecycle = lifecycle.NewService(store, a.engine, log, metrics)
	a.calcBaselines = appbaseline.NewCalculator(a.parties, a.periods, prodcons, log, metrics)
	a.calcLimits = applimits.NewCalculator(a.parties, a.periods, a.calcBaselines, log, metrics)
	a.reconciliation = reconciliation.NewService(a.periods, a.calcBaselines, a.calcLimits,
		a.baselines, a.limits, log, metrics)
	return a, nil
}

func (a *app) close() {
	if a.conn != nil {
		a.conn.Close()
	}
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	root := &cobra.Command{
		Use:           "ozone",
		Short:         "Ozone reporting core: aggregation, baselines, limits, submission lifecycle",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to config file (default: environment only)")
	root.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override log level (debug|info|warn|error)")

	root.AddCommand(
		newMigrateCommand(opts),
		newAggregateCommand(opts),
		newRecalculateCommand(opts),
		newReconcileCommand(opts),
	)
	return root
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
