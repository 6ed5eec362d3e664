package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/regdiag-cli/internal/config"
	"github.com/KaramelBytes/regdiag-cli/internal/logging"
)

var (
	// Global flags
	cfgFile   string
	debug     bool
	logFormat string
	logFile   string

	// Loaded configuration
	cfg *cfgpkg.Global
	log = zerolog.Nop()

	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "regdiag",
	Short: "regdiag: stepwise regression with assumption diagnostics and Box-Cox refinement",
	Long: `regdiag fits linear models of a response (close_price by default) on tabular
financial datasets. It selects predictors three ways, explores interactions,
checks the linear-model assumptions and repairs violations with a Box-Cox
transform of the response followed by term removal.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	cobra.OnFinalize(closeLog)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.regdiag/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: console|json (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "append logs to this file instead of stderr")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to defaults so config set can repair a broken file
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = cfgpkg.Default()
	}
	cfg = c

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if debug {
		level = zerolog.DebugLevel
	}
	format := cfg.LogFormat
	if logFormat != "" {
		format = logFormat
	}
	closeLog()
	if logFile == "" {
		log = logging.NewWithWriter(level, format, rootCmd.ErrOrStderr())
		return
	}
	l, closer, err := logging.New(logging.Config{Level: level.String(), Format: format, Output: logFile})
	if err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "⚠ Warning: %v; logging to stderr\n", err)
		log = logging.NewWithWriter(level, format, rootCmd.ErrOrStderr())
		return
	}
	log, logCloser = l, closer
}

func closeLog() {
	if logCloser != nil {
		_ = logCloser.Close()
		logCloser = nil
	}
}

// config returns the loaded configuration, loading it on demand for callers
// that bypass cobra initialization.
func config() *cfgpkg.Global {
	if cfg == nil {
		loadConfig()
	}
	return cfg
}
