// Package commands implements the mia command line.
package commands

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/imacat/mia-accounting-django-sub000/internal/accounts"
	"github.com/imacat/mia-accounting-django-sub000/internal/buildinfo"
	"github.com/imacat/mia-accounting-django-sub000/internal/config"
	"github.com/imacat/mia-accounting-django-sub000/internal/ledger"
	"github.com/imacat/mia-accounting-django-sub000/internal/log"
	"github.com/imacat/mia-accounting-django-sub000/internal/metrics"
	"github.com/imacat/mia-accounting-django-sub000/internal/report"
	"github.com/imacat/mia-accounting-django-sub000/internal/store"
)

// globals are the persistent flags shared by every subcommand.
type globals struct {
	configPath string
	stats      bool
}

// app is everything a subcommand needs once the config is loaded.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	registry *prometheus.Registry
	store    *store.Store
	accounts *accounts.Registry
	ledger   *ledger.Service
	reports  *report.Engine
	stats    bool
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	g := &globals{}
	rootCmd := &cobra.Command{
		Use:     "mia",
		Short:   "Double-entry bookkeeping",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "mia.yaml", "path to the mia.yaml config file")
	rootCmd.PersistentFlags().BoolVar(&g.stats, "stats", false, "print operation metrics to stderr on exit")

	rootCmd.AddCommand(
		newInitCommand(),
		newAccountsCommand(g),
		newTxnCommand(g),
		newReportCommand(g),
		newSearchCommand(g),
	)

	return rootCmd
}

// open loads the config and wires the store and services.
func (g *globals) open(ctx context.Context) (*app, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := log.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	s, err := store.Open(ctx, cfg.Database, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	return &app{
		cfg:      cfg,
		log:      logger,
		registry: reg,
		store:    s,
		accounts: accounts.NewRegistry(s),
		ledger:   ledger.NewService(s, cfg.Accounting, m, logger),
		reports:  report.NewEngine(s, cfg, m, logger),
		stats:    g.stats,
	}, nil
}

// run opens the app, calls fn and tears the app down again.
func (g *globals) run(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.close(cmd.ErrOrStderr())
	return fn(ctx, a)
}

func (a *app) close(stderr io.Writer) {
	if a.stats {
		writeStats(stderr, a.registry)
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("closing store", zap.Error(err))
	}
	_ = a.log.Sync()
}

// writeStats prints every non-empty sample of reg, one per line.
func writeStats(w io.Writer, reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		fmt.Fprintf(w, "gathering metrics: %v\n", err)
		return
	}
	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			switch {
			case m.GetCounter() != nil:
				lines = append(lines, fmt.Sprintf("%s %g", name, m.GetCounter().GetValue()))
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				lines = append(lines, fmt.Sprintf("%s count=%d sum=%gs", name, h.GetSampleCount(), h.GetSampleSum()))
			}
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}
