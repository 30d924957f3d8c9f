// Package chainscript runs Lua scripts that build command chains with the
// global cy object and executes them through the command queue.
package chainscript

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Shopify/go-lua"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/drivechain/internal/driver/cmdlog"
	"github.com/louisbranch/drivechain/internal/driver/queue"
	"github.com/louisbranch/drivechain/internal/platform/timeouts"
)

// Config controls script execution.
type Config struct {
	// CommandTimeout is the default per-command timeout.
	CommandTimeout time.Duration
	// RetryInterval is the pause between query retries.
	RetryInterval time.Duration
	// Timeout caps the whole run. Zero disables the cap.
	Timeout time.Duration
	// Reporter persists the run's log records. Optional.
	Reporter cmdlog.Reporter
	// Tracer records command spans. Optional.
	Tracer  trace.Tracer
	Verbose bool
	Logger  *log.Logger
}

// DefaultConfig returns default runner configuration.
func DefaultConfig() Config {
	return Config{
		CommandTimeout: timeouts.DefaultCommand,
		RetryInterval:  timeouts.RetryInterval,
		Timeout:        timeouts.Run,
	}
}

// Result describes a finished run.
type Result struct {
	Name     string
	RunID    string
	Subject  any
	Commands int
	Logs     []cmdlog.Record
}

// Runner executes chain scripts.
type Runner struct {
	cfg    Config
	logger *log.Logger
}

// NewRunner prepares a runner. Config defaults are applied here.
func NewRunner(cfg Config) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "", 0)
	}
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = timeouts.DefaultCommand
	}
	return &Runner{cfg: cfg, logger: logger}
}

// RunFile loads and runs the script at path.
func (r *Runner) RunFile(ctx context.Context, path string) (Result, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read script: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return r.run(ctx, name, "@"+path, string(source))
}

// RunString runs source as a script called name.
func (r *Runner) RunString(ctx context.Context, name, source string) (Result, error) {
	return r.run(ctx, name, "@"+name, source)
}

func (r *Runner) run(ctx context.Context, name, chunk, source string) (Result, error) {
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	logger := cmdlog.NewLogger(r.cfg.Reporter)
	q := queue.New(queue.Config{
		DefaultCommandTimeout: r.cfg.CommandTimeout,
		RetryInterval:         r.cfg.RetryInterval,
		Logger:                logger,
		Tracer:                r.cfg.Tracer,
	})
	s := newSession(q)
	defer s.close()
	result := Result{Name: name, RunID: logger.RunID()}

	r.logf("run start: %s", name)
	if err := lua.LoadBuffer(s.state, source, chunk, ""); err != nil {
		return result, fmt.Errorf("load script: %w", err)
	}
	if err := s.state.ProtectedCall(0, 0, 0); err != nil {
		return result, fmt.Errorf("run script: %w", err)
	}
	r.logf("queued %d commands", len(q.Commands()))

	subj, runErr := q.Run(ctx)
	result.Subject = subj
	result.Commands = len(q.Commands())
	result.Logs = logger.Records()
	if r.cfg.Verbose {
		for _, record := range result.Logs {
			r.logf("  %-8s %-7s %s", record.Name, record.State, record.Message)
		}
	}

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Flush)
	defer cancel()
	flushErr := logger.Flush(flushCtx)
	if flushErr != nil {
		flushErr = fmt.Errorf("flush logs: %w", flushErr)
	}
	return result, errors.Join(runErr, flushErr)
}

func (r *Runner) logf(format string, args ...any) {
	if !r.cfg.Verbose {
		return
	}
	r.logger.Printf(format, args...)
}
