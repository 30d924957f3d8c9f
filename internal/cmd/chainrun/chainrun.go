// Package chainrun implements the chainrun command: it runs a chain script
// and prints the command log, or prints a run stored earlier.
package chainrun

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/message"

	"github.com/louisbranch/drivechain/internal/driver/cmdlog"
	"github.com/louisbranch/drivechain/internal/driver/cmdlog/sqlite"
	"github.com/louisbranch/drivechain/internal/driver/subject"
	platformcmd "github.com/louisbranch/drivechain/internal/platform/cmd"
	"github.com/louisbranch/drivechain/internal/platform/i18n/catalog"
	"github.com/louisbranch/drivechain/internal/tools/chainscript"
)

// Config holds chainrun command configuration.
type Config struct {
	Script         string        `env:"DRIVECHAIN_SCRIPT"`
	CommandTimeout time.Duration `env:"DRIVECHAIN_COMMAND_TIMEOUT" envDefault:"4s"`
	RunTimeout     time.Duration `env:"DRIVECHAIN_RUN_TIMEOUT"     envDefault:"60s"`
	Verbose        bool          `env:"DRIVECHAIN_VERBOSE"`
	LogDB          string        `env:"DRIVECHAIN_LOG_DB"`
	Locale         string        `env:"DRIVECHAIN_LOCALE"          envDefault:"en-US"`
	// Show prints the stored records of a run instead of running a script.
	Show string
}

// ParseConfig loads defaults from env and then parses flags.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.Script, "script", cfg.Script, "path to chain lua script")
	fs.DurationVar(&cfg.CommandTimeout, "command-timeout", cfg.CommandTimeout, "default timeout per command")
	fs.DurationVar(&cfg.RunTimeout, "timeout", cfg.RunTimeout, "timeout for the whole run")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "enable verbose logging")
	fs.StringVar(&cfg.LogDB, "log-db", cfg.LogDB, "sqlite file to persist command logs")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "locale for output messages")
	fs.StringVar(&cfg.Show, "show", "", "print the stored logs of a run id and exit")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the chainrun command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	printer := catalog.Printer(cfg.Locale)

	var store *sqlite.Store
	if cfg.LogDB != "" {
		var err error
		store, err = sqlite.Open(cfg.LogDB)
		if err != nil {
			return fmt.Errorf("open log db: %w", err)
		}
		defer store.Close()
	}

	if cfg.Show != "" {
		if store == nil {
			return errors.New("log db is required to show a run")
		}
		records, err := store.ListRun(ctx, cfg.Show)
		if err != nil {
			return err
		}
		printRecords(out, printer, records)
		return nil
	}

	if cfg.Script == "" {
		return errors.New("script path is required")
	}

	runnerCfg := chainscript.DefaultConfig()
	runnerCfg.CommandTimeout = cfg.CommandTimeout
	runnerCfg.Timeout = cfg.RunTimeout
	runnerCfg.Verbose = cfg.Verbose
	runnerCfg.Logger = log.New(errOut, "", 0)
	if store != nil {
		runnerCfg.Reporter = store
	}

	name := strings.TrimSuffix(filepath.Base(cfg.Script), filepath.Ext(cfg.Script))
	fmt.Fprintln(out, printer.Sprintf("core.run.start", name, cfg.Script))

	result, err := chainscript.NewRunner(runnerCfg).RunFile(ctx, cfg.Script)
	printRecords(out, printer, result.Logs)
	if err != nil {
		fmt.Fprintln(errOut, printer.Sprintf("core.run.failed", name, result.Commands, err))
		return err
	}
	fmt.Fprintln(out, printer.Sprintf("core.run.summary", name, result.Commands, subject.Stringify(result.Subject)))
	return nil
}

func printRecords(out io.Writer, printer *message.Printer, records []cmdlog.Record) {
	for _, record := range records {
		fmt.Fprintln(out, printer.Sprintf("core.log.record", record.Name, record.State, record.Message))
	}
}
