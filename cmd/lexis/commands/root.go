// Package commands implements the lexis command line.
package commands

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/lexis-ai/cli/config"
)

var version = "dev"

// SetVersion sets the version reported by --version
func SetVersion(v string) {
	version = v
}

// globalFlags are shared by every subcommand
type globalFlags struct {
	configPath   string
	verbose      bool
	documentsDir string
	storageDir   string
}

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "lexis",
		Short: "Ask questions about Indian law from your own documents",
		Long: `lexis indexes a directory of legal documents (PDF, EPUB, DOCX, text)
and answers questions from it with a language model, adding recent web
results when a question asks about new developments.

The index is cached and reused until a document changes.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default ~/.lexis/config.yaml)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVar(&flags.documentsDir, "documents", "", "documents directory (overrides config)")
	pf.StringVar(&flags.storageDir, "storage", "", "index cache directory (overrides config)")

	cmd.AddCommand(
		newIndexCmd(flags),
		newAskCmd(flags),
		newChatCmd(flags),
		newDocsCmd(flags),
		newStatusCmd(flags),
		newWatchCmd(flags),
		newConfigCmd(flags),
	)

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig reads the config file and applies command line overrides
func (f *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.documentsDir != "" {
		cfg.Paths.DocumentsDir = f.documentsDir
	}
	if f.storageDir != "" {
		cfg.Storage.Dir = f.storageDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger logs to stderr so command output stays clean
func (f *globalFlags) newLogger(cfg *config.Config, w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	logger := log.NewWithOptions(w, log.Options{ReportTimestamp: true, Prefix: "lexis"})

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = log.InfoLevel
	}
	if f.verbose {
		level = log.DebugLevel
	}
	logger.SetLevel(level)
	return logger
}
