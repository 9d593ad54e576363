package app

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/ludo-technologies/ccheck/domain"
	"github.com/ludo-technologies/ccheck/internal/repo"
	"github.com/ludo-technologies/ccheck/internal/source"
	"github.com/ludo-technologies/ccheck/internal/waiver"
	"github.com/ludo-technologies/ccheck/service"
)

// DefaultWaiverExpiryDays is the lifetime of a waiver added from the CLI
const DefaultWaiverExpiryDays = waiver.DefaultExpiryDays

// WaiverFilter selects waivers for display. Filters combine with AND.
type WaiverFilter struct {
	Rule         string
	Expired      bool
	Unused       bool
	ExpiringDays int
}

// AddWaiverRequest describes a line waiver to add to a rule's policy file
type AddWaiverRequest struct {
	Rule        string
	File        string
	Line        int
	Column      int
	Message     string
	Reason      string
	ApprovedBy  string
	ExpiresDays int
}

// WaiverUseCase inspects and maintains the waiver policy of a workspace
type WaiverUseCase struct {
	ws  *Workspace
	now func() time.Time
}

// NewWaiverUseCase creates a new waiver use case
func NewWaiverUseCase(ws *Workspace) *WaiverUseCase {
	return &WaiverUseCase{ws: ws, now: time.Now}
}

// Usage runs every enabled rule without output so waiver usage reflects the
// current state of the repository
func (uc *WaiverUseCase) Usage(ctx context.Context) (waiver.UsageStore, error) {
	check := NewCheckUseCase(uc.ws)
	check.now = uc.now
	outcome, err := check.Execute(ctx, CheckConfig{})
	if err != nil {
		return nil, err
	}
	return outcome.Ledger, nil
}

// Show lists the waivers matching filter. usage may be nil, in which case
// every waiver counts as unused.
func (uc *WaiverUseCase) Show(filter WaiverFilter, usage waiver.UsageStore) *service.WaiverListing {
	now := uc.now()
	selected := uc.ws.Waivers
	if filter.Rule != "" {
		selected = waiver.ForRule(selected, filter.Rule)
	}
	if filter.Expired {
		selected = waiver.Expired(selected, now)
	}
	if filter.Unused {
		selected = waiver.Unused(selected, usage)
	}
	if filter.ExpiringDays > 0 {
		selected = waiver.Expiring(selected, now, filter.ExpiringDays)
	}
	return service.NewWaiverListing(uc.ws.Waivers, selected, usage, now)
}

// Validate reports maintenance issues. Unused waivers are only reported
// when usage is supplied.
func (uc *WaiverUseCase) Validate(usage waiver.UsageStore) []domain.WaiverIssue {
	return waiver.Validate(uc.ws.Waivers, usage, uc.now())
}

// ExportUnused runs the checks and writes the waivers nothing matched to path
func (uc *WaiverUseCase) ExportUnused(ctx context.Context, path string) (int, error) {
	usage, err := uc.Usage(ctx)
	if err != nil {
		return 0, err
	}
	return waiver.ExportUnused(path, uc.ws.Waivers, usage, uc.now())
}

// Add appends a line waiver to the rule's policy file and returns it with
// the file it was written to
func (uc *WaiverUseCase) Add(req AddWaiverRequest) (*domain.WaiverRule, string, error) {
	if _, ok := uc.ws.Catalog.Get(req.Rule); !ok {
		return nil, "", domain.NewInvalidInputError("unknown rule "+req.Rule, nil)
	}
	if strings.TrimSpace(req.Reason) == "" || strings.TrimSpace(req.ApprovedBy) == "" {
		return nil, "", domain.NewInvalidInputError("a waiver needs a reason and an approver", nil)
	}
	if req.File == "" || req.Line <= 0 {
		return nil, "", domain.NewInvalidInputError("a line waiver needs a file and a positive line", nil)
	}

	abs := req.File
	if !filepath.IsAbs(abs) {
		abs = repo.Abs(uc.ws.Root, req.File)
	}
	v := domain.Violation{
		RuleName: req.Rule,
		FilePath: repo.Rel(uc.ws.Root, abs),
		Line:     req.Line,
		Column:   req.Column,
		Message:  req.Message,
	}
	v = v.WithContext(source.Context(abs, req.Line, 0))

	w := waiver.FromViolation(v, req.Reason, req.ApprovedBy, req.ExpiresDays, uc.now())
	if req.Column <= 0 {
		w.Column = nil
	}
	w.ID = waiver.UniqueID(w.ID, uc.ws.Waivers)

	owned := append(uc.ws.OwnedWaivers(req.Rule), w)
	path, err := waiver.SaveRuleWaivers(uc.ws.RulesDir, req.Rule, owned)
	if err != nil {
		return nil, "", err
	}
	w.Source = path
	uc.ws.Waivers = append(uc.ws.Waivers, w)
	uc.ws.Logger.Info("waiver added", "rule", req.Rule, "id", w.ID, "file", path)
	return w, path, nil
}
