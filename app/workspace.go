package app

import (
	"io"
	"log/slog"
	"os"

	"github.com/ludo-technologies/ccheck/domain"
	"github.com/ludo-technologies/ccheck/internal/config"
	"github.com/ludo-technologies/ccheck/internal/logging"
	"github.com/ludo-technologies/ccheck/internal/registry"
	"github.com/ludo-technologies/ccheck/internal/repo"
	"github.com/ludo-technologies/ccheck/internal/waiver"

	// Built-in rules register themselves with registry.Default
	_ "github.com/ludo-technologies/ccheck/internal/rules"
)

// logWriter receives log output when no logger is supplied
var logWriter io.Writer = os.Stderr

// WorkspaceOptions selects the repository and configuration to open
type WorkspaceOptions struct {
	// Target is any path inside the repository; empty means the working directory
	Target string

	// ConfigPath is an explicit configuration file; empty means discovery
	ConfigPath string

	// Registry defaults to registry.Default
	Registry *registry.Registry

	// Logger defaults to one built from the logging section of the config
	Logger *slog.Logger
}

// Workspace is a repository with its resolved configuration, discovered
// rules and loaded waiver policy
type Workspace struct {
	Root       string
	ConfigPath string
	Config     *config.Config
	RulesDir   string
	Catalog    *registry.Catalog
	Waivers    []*domain.WaiverRule
	Logger     *slog.Logger
}

// OpenWorkspace performs every step that must succeed before a rule runs:
// root detection, configuration, discovery and waiver loading
func OpenWorkspace(opts WorkspaceOptions) (*Workspace, error) {
	target := opts.Target
	if target == "" {
		target = "."
	}
	root, err := repo.FindRoot(target)
	if err != nil {
		return nil, err
	}

	configPath := config.ResolvePath(opts.ConfigPath, root)
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, domain.NewConfigError("failed to load configuration", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.New(logWriter, cfg.Logging.Format, cfg.Logging.Level)
	}

	reg := opts.Registry
	if reg == nil {
		reg = registry.Default
	}
	rulesDir := cfg.RulesDirIn(root)
	catalog, err := registry.Discover(rulesDir, reg, logger)
	if err != nil {
		return nil, err
	}

	waivers, err := waiver.NewLoader(logger).LoadDir(rulesDir)
	if err != nil {
		return nil, err
	}

	logger.Debug("workspace opened",
		"root", root,
		"config", configPath,
		"rules", catalog.Len(),
		"waivers", len(waivers),
	)
	return &Workspace{
		Root:       root,
		ConfigPath: configPath,
		Config:     cfg,
		RulesDir:   rulesDir,
		Catalog:    catalog,
		Waivers:    waivers,
		Logger:     logger,
	}, nil
}

// OwnedWaivers returns the waivers loaded from rule's own policy file
func (ws *Workspace) OwnedWaivers(rule string) []*domain.WaiverRule {
	path := waiver.PolicyPath(ws.RulesDir, rule)
	var out []*domain.WaiverRule
	for _, w := range ws.Waivers {
		if w.Source == path {
			out = append(out, w)
		}
	}
	return out
}
