package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ludo-technologies/ccheck/domain"
	"github.com/ludo-technologies/ccheck/internal/storage"
	"github.com/ludo-technologies/ccheck/internal/version"
	"github.com/ludo-technologies/ccheck/internal/waiver"
	"github.com/ludo-technologies/ccheck/service"
)

// CheckConfig holds the options of one checker run
type CheckConfig struct {
	// Rules names the rules to run; empty runs every enabled rule
	Rules []string

	// Files restricts every rule to these paths
	Files []string

	Fix bool

	// Record stores the run in the history database even when history is
	// disabled in the configuration
	Record bool

	// ConfirmDisabled is asked before a disabled rule named in Rules runs.
	// Nil means disabled rules named explicitly are skipped.
	ConfirmDisabled func(rule string) bool

	// Output options. An empty format writes nothing.
	OutputFormat domain.OutputFormat
	OutputWriter io.Writer
	OutputPath   string
	ShowDetails  bool

	Progress domain.ProgressManager
}

// CheckOutcome is everything a run produced
type CheckOutcome struct {
	Report *domain.RunReport
	Engine *waiver.Engine
	Ledger *waiver.Ledger
}

// CheckUseCase runs the checker over a workspace
type CheckUseCase struct {
	ws         *Workspace
	fileHelper *FileHelper
	formatter  *service.OutputFormatter
	now        func() time.Time
}

// NewCheckUseCase creates a new check use case
func NewCheckUseCase(ws *Workspace) *CheckUseCase {
	return &CheckUseCase{
		ws:         ws,
		fileHelper: NewFileHelper(),
		formatter:  service.NewOutputFormatter(ws.Config.Output.ShowDetails, ws.Config.Settings.ShowTiming),
		now:        time.Now,
	}
}

// Execute selects rules, runs them, writes the report and records history
func (uc *CheckUseCase) Execute(ctx context.Context, cfg CheckConfig) (*CheckOutcome, error) {
	startedAt := uc.now()
	logger := uc.ws.Logger

	rules, skipped, unknown, err := uc.selectRules(cfg)
	if err != nil {
		return nil, err
	}

	var files []string
	if len(cfg.Files) > 0 {
		files, err = uc.fileHelper.ResolveFiles(uc.ws.Root, cfg.Files)
		if err != nil {
			return nil, err
		}
	}

	engine := waiver.NewEngine(uc.ws.Waivers, waiver.WithClock(uc.now))
	ledger := waiver.NewLedger()
	opts := []service.CheckerOption{service.WithLogger(logger)}
	if cfg.Progress != nil {
		opts = append(opts, service.WithProgress(cfg.Progress))
	}
	checker := service.NewCheckerService(uc.ws.Catalog, uc.ws.Config, uc.ws.RulesDir, engine, ledger, opts...)

	logger.Info("running rules", "count", len(rules), "fix", cfg.Fix)
	results, err := checker.Run(ctx, service.RunRequest{
		RepoRoot: uc.ws.Root,
		Rules:    rules,
		Files:    files,
		Fix:      cfg.Fix,
	})
	if err != nil {
		return nil, domain.NewAnalysisError("checker run failed", err)
	}

	stats := waiver.Statistics(uc.ws.Waivers, ledger, uc.now())
	report := &domain.RunReport{
		ID:          uuid.NewString(),
		Version:     version.Version,
		RepoRoot:    uc.ws.Root,
		StartedAt:   startedAt,
		Results:     results,
		Summary:     service.Aggregate(results, uc.now().Sub(startedAt)),
		Waivers:     &stats,
		Skipped:     skipped,
		UnknownRule: unknown,
	}

	if err := uc.writeReport(report, cfg); err != nil {
		return nil, err
	}
	if cfg.Record || uc.ws.Config.History.Enabled {
		if err := uc.record(ctx, report); err != nil {
			logger.Warn("failed to record run history", "error", err)
		}
	}
	return &CheckOutcome{Report: report, Engine: engine, Ledger: ledger}, nil
}

// selectRules resolves which rules run. Without explicit names every
// discovered rule allowed by rules.enabled_rules and not disabled runs.
// Explicit names must be discovered; disabled ones need confirmation.
func (uc *CheckUseCase) selectRules(cfg CheckConfig) (rules, skipped, unknown []string, err error) {
	conf := uc.ws.Config
	catalog := uc.ws.Catalog

	if len(cfg.Rules) == 0 {
		rules, unknown = catalog.Enabled(conf.Rules.EnabledRules, conf.Rules.DisabledRules)
		for _, name := range catalog.Names() {
			if conf.IsDisabled(name) {
				skipped = append(skipped, name)
			}
		}
		for _, name := range unknown {
			uc.ws.Logger.Warn("enabled rule was not discovered", "rule", name)
		}
		return rules, skipped, unknown, nil
	}

	seen := make(map[string]bool)
	for _, name := range cfg.Rules {
		if seen[name] {
			continue
		}
		seen[name] = true
		if _, ok := catalog.Get(name); !ok {
			unknown = append(unknown, name)
			continue
		}
		if conf.IsDisabled(name) && (cfg.ConfirmDisabled == nil || !cfg.ConfirmDisabled(name)) {
			skipped = append(skipped, name)
			continue
		}
		rules = append(rules, name)
	}
	if len(unknown) > 0 {
		return nil, nil, nil, domain.NewInvalidInputError(
			fmt.Sprintf("unknown rules: %s (available: %s)", strings.Join(unknown, ", "), strings.Join(catalog.Names(), ", ")), nil)
	}
	sort.Strings(skipped)
	return rules, skipped, nil, nil
}

func (uc *CheckUseCase) writeReport(report *domain.RunReport, cfg CheckConfig) (err error) {
	if cfg.OutputFormat == "" {
		return nil
	}
	writer := cfg.OutputWriter
	if cfg.OutputPath != "" {
		f, cerr := os.Create(cfg.OutputPath)
		if cerr != nil {
			return domain.NewOutputError("cannot create "+cfg.OutputPath, cerr)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = domain.NewOutputError("cannot write "+cfg.OutputPath, cerr)
			}
		}()
		writer = f
	}
	if writer == nil {
		writer = os.Stdout
	}
	formatter := uc.formatter
	if cfg.ShowDetails {
		formatter = service.NewOutputFormatter(true, formatter.ShowTiming)
	}
	return formatter.Write(report, cfg.OutputFormat, writer)
}

func (uc *CheckUseCase) record(ctx context.Context, report *domain.RunReport) error {
	db, err := storage.OpenSQLite(uc.ws.Config.HistoryPathIn(uc.ws.Root))
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.CreateSchema(ctx); err != nil {
		return err
	}
	return db.SaveRun(ctx, report)
}
