package registry

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ludo-technologies/ccheck/domain"
	"github.com/ludo-technologies/ccheck/internal/logging"
)

// Entry is one discovered rule
type Entry struct {
	Name     string
	Dir      string
	Factory  domain.RuleFactory
	Metadata domain.RuleMetadata
}

// DiscoveryProblem records a rule directory that could not be turned into a
// catalog entry
type DiscoveryProblem struct {
	Dir    string
	Reason string
}

func (p DiscoveryProblem) String() string {
	return fmt.Sprintf("%s: %s", p.Dir, p.Reason)
}

// Catalog is the set of discovered rules indexed by metadata name
type Catalog struct {
	entries  map[string]*Entry
	Problems []DiscoveryProblem
}

// Get returns the entry for name
func (c *Catalog) Get(name string) (*Entry, bool) {
	e, ok := c.entries[name]
	return e, ok
}

// Len returns the number of discovered rules
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Names returns the discovered rule names in sorted order
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.entries))
	for n := range c.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Entries returns the discovered rules sorted by name
func (c *Catalog) Entries() []*Entry {
	out := make([]*Entry, 0, len(c.entries))
	for _, n := range c.Names() {
		out = append(out, c.entries[n])
	}
	return out
}

// Enabled selects the rules to run. An empty allow list selects every
// discovered rule; deny always wins. Names in allow that were not discovered
// are returned as unknown.
func (c *Catalog) Enabled(allow, deny []string) (enabled, unknown []string) {
	denied := make(map[string]bool, len(deny))
	for _, n := range deny {
		denied[n] = true
	}

	candidates := c.Names()
	if len(allow) > 0 {
		candidates = candidates[:0:0]
		seen := map[string]bool{}
		for _, n := range allow {
			if seen[n] {
				continue
			}
			seen[n] = true
			if _, ok := c.entries[n]; ok {
				candidates = append(candidates, n)
			} else {
				unknown = append(unknown, n)
			}
		}
	}

	for _, n := range candidates {
		if !denied[n] {
			enabled = append(enabled, n)
		}
	}
	sort.Strings(enabled)
	return enabled, unknown
}

// Discover resolves every subdirectory of rulesDir to a registered factory
// and captures the metadata of one default-configured instance. Directories
// without a factory and factories that fail or panic are skipped and
// recorded as problems. A missing rules directory is an error.
func Discover(rulesDir string, reg *Registry, logger *slog.Logger) (*Catalog, error) {
	logger = logging.OrDefault(logger)

	info, err := os.Stat(rulesDir)
	if err != nil {
		return nil, domain.NewDiscoveryError("rules directory not found: "+rulesDir, err)
	}
	if !info.IsDir() {
		return nil, domain.NewDiscoveryError("rules path is not a directory: "+rulesDir, nil)
	}
	dirs, err := os.ReadDir(rulesDir)
	if err != nil {
		return nil, domain.NewDiscoveryError("cannot read rules directory "+rulesDir, err)
	}

	cat := &Catalog{entries: make(map[string]*Entry)}
	skip := func(dir, reason string) {
		logger.Warn("skipping rule directory", "dir", dir, "reason", reason)
		cat.Problems = append(cat.Problems, DiscoveryProblem{Dir: dir, Reason: reason})
	}

	names := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if d.IsDir() && !ignoredDir(d.Name()) {
			names = append(names, d.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		dir := filepath.Join(rulesDir, name)
		factory, ok := reg.Get(name)
		if !ok {
			skip(dir, "no rule registered for "+name)
			continue
		}

		rule, err := Instantiate(name, factory, domain.NewRuleConfig(nil))
		if err != nil {
			skip(dir, err.Error())
			continue
		}
		meta, err := metadataOf(name, rule)
		if err != nil {
			skip(dir, err.Error())
			continue
		}
		if meta.Name == "" {
			meta.Name = name
		}
		if existing, dup := cat.entries[meta.Name]; dup {
			skip(dir, fmt.Sprintf("rule name %s already provided by %s", meta.Name, existing.Dir))
			continue
		}

		cat.entries[meta.Name] = &Entry{Name: meta.Name, Dir: dir, Factory: factory, Metadata: meta}
		logger.Debug("discovered rule", "rule", meta.Name, "dir", dir)
	}
	return cat, nil
}

// Instantiate calls factory with cfg, converting a panic into an error
func Instantiate(name string, factory domain.RuleFactory, cfg domain.RuleConfig) (rule domain.Rule, err error) {
	defer func() {
		if r := recover(); r != nil {
			rule, err = nil, domain.NewRuleError(name, fmt.Sprintf("panic during instantiation: %v", r), nil)
		}
	}()
	rule, err = factory(cfg)
	if err != nil {
		return nil, domain.NewRuleError(name, "instantiation failed", err)
	}
	if rule == nil {
		return nil, domain.NewRuleError(name, "factory returned no rule", nil)
	}
	return rule, nil
}

func metadataOf(name string, rule domain.Rule) (meta domain.RuleMetadata, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.NewRuleError(name, fmt.Sprintf("panic reading metadata: %v", r), nil)
		}
	}()
	return rule.Metadata(), nil
}

func ignoredDir(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}
