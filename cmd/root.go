package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/abhisek/studycoach/internal/config"
	"github.com/abhisek/studycoach/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "studycoach",
	Short: "Spaced-repetition quiz coach",
	Long: `studycoach picks a topic from your Notion workspace, sends you a six-question
quiz on Telegram, grades your answers with an LLM and schedules the next review.

Run "studycoach run" from cron; every invocation is one short pass.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Process-wide settings resolved in setup.
var (
	logger  = slog.Default()
	fileCfg config.FileConfig
)

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("state", "", "Path to the state JSON file (overrides STUDYCOACH_STATE)")
	pf.String("events-db", "", "Path to the LLM event log (overrides STUDYCOACH_EVENTS_DB)")
	pf.String("config", "", "Path to a TOML config file (default $XDG_CONFIG_HOME/studycoach/config.toml)")
	pf.String("env-file", ".env", "Dotenv file loaded before reading the environment")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("log-format", "", "Log format: text, json or auto")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads the dotenv and config files and installs the logger.
func setup(cmd *cobra.Command, _ []string) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfgPath, _ := cmd.Flags().GetString("config")
	if cfgPath == "" {
		cfgPath = config.DefaultConfigPath()
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return err
	}
	fileCfg = cfg

	level, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	l, err := newLogger(os.Stderr,
		firstNonEmpty(level, os.Getenv("STUDYCOACH_LOG_LEVEL"), config.StringOr(cfg.Log.Level, "info")),
		firstNonEmpty(format, os.Getenv("STUDYCOACH_LOG_FORMAT"), config.StringOr(cfg.Log.Format, "auto")),
		isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()))
	if err != nil {
		return err
	}
	logger = l
	slog.SetDefault(l)
	return nil
}

// newLogger builds the process logger. The auto format picks text on a
// terminal and JSON otherwise.
func newLogger(w io.Writer, level, format string, tty bool) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "auto", "":
		if tty {
			return slog.New(slog.NewTextHandler(w, opts)), nil
		}
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q: must be text, json or auto", format)
	}
}

// resolveStatePath returns the state path using --state (highest priority),
// then STUDYCOACH_STATE, then the config file, then the default XDG path.
func resolveStatePath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("state"); p != "" {
		return p, store.EnsureDir(p)
	}
	if os.Getenv("STUDYCOACH_STATE") == "" && fileCfg.State.Path != nil {
		return *fileCfg.State.Path, nil
	}
	return store.DefaultStatePath()
}

// resolveEventsPath mirrors resolveStatePath for the LLM event log.
func resolveEventsPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("events-db"); p != "" {
		return p, nil
	}
	if os.Getenv("STUDYCOACH_EVENTS_DB") == "" && fileCfg.State.EventsDB != nil {
		return *fileCfg.State.EventsDB, nil
	}
	return store.DefaultEventsPath()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
