package service

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/ludo-technologies/ccheck/domain"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// NoProgressEnvVar disables progress bars when set
const NoProgressEnvVar = "CCHECK_NO_PROGRESS"

// IsInteractiveEnvironment reports whether stderr is a terminal outside CI
func IsInteractiveEnvironment() bool {
	if os.Getenv("CI") != "" || os.Getenv(NoProgressEnvVar) != "" {
		return false
	}
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// NewProgressManager returns progress bars on stderr when enabled and the
// environment is interactive, and a silent manager otherwise
func NewProgressManager(enabled bool) domain.ProgressManager {
	if enabled && IsInteractiveEnvironment() {
		return newBarProgress(os.Stderr)
	}
	return silentProgress{}
}

// barProgress draws one progress bar per phase
type barProgress struct {
	w    io.Writer
	mu   sync.Mutex
	bars []*progressbar.ProgressBar
}

func newBarProgress(w io.Writer) *barProgress {
	return &barProgress{w: w}
}

func (p *barProgress) StartTask(description string, total int) domain.TaskProgress {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(24),
		progressbar.OptionShowCount(),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	p.mu.Lock()
	p.bars = append(p.bars, bar)
	p.mu.Unlock()
	return barTask{bar: bar}
}

func (p *barProgress) IsInteractive() bool { return true }

func (p *barProgress) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, bar := range p.bars {
		_ = bar.Finish()
	}
	p.bars = nil
}

// barTask forwards to a progressbar, which guards its own state
type barTask struct {
	bar *progressbar.ProgressBar
}

func (t barTask) Increment(n int)             { _ = t.bar.Add(n) }
func (t barTask) Describe(description string) { t.bar.Describe(description) }
func (t barTask) Complete()                   { _ = t.bar.Finish() }

// silentProgress discards all progress
type silentProgress struct{}

func (silentProgress) StartTask(string, int) domain.TaskProgress { return silentTask{} }
func (silentProgress) IsInteractive() bool                       { return false }
func (silentProgress) Close()                                    {}

type silentTask struct{}

func (silentTask) Increment(int)   {}
func (silentTask) Describe(string) {}
func (silentTask) Complete()       {}

// startTask starts a phase on pm, or a silent one when pm is nil
func startTask(pm domain.ProgressManager, description string, total int) domain.TaskProgress {
	if pm == nil {
		return silentTask{}
	}
	return pm.StartTask(description, total)
}
