// Package main provides the vibe-goa command-line tool.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	configName = ".vibe-goa"
	envPrefix  = "VIBE_GOA"
)

var (
	cfgFile string
	verbose bool

	logger = zap.NewNop()
)

// usageError marks errors caused by bad invocation rather than bad data.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	err := cmd.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var ue *usageError
		if errors.As(err, &ue) {
			fmt.Fprintf(os.Stderr, "Run 'vibe-goa --help' for usage.\n")
		}
	}
	return exitCode(err)
}

func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ue *usageError
	if errors.As(err, &ue) || strings.HasPrefix(err.Error(), "unknown command") {
		return ExitUsage
	}
	return ExitError
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vibe-goa",
		Short: "Gene Ontology annotation of differential expression results",
		Long: `vibe-goa annotates DESeq2-style result tables with Gene Ontology
biological-process terms from a GO OBO file and a FlyBase gene association file.`,
		Example: `  # Download go-basic.obo and the FlyBase GAF (one-time setup)
  vibe-goa download

  # Annotate every CSV in two result directories
  vibe-goa annotate Hyperoxia/ Mutant/

  # Look up a few genes
  vibe-goa lookup Adh cno`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(); err != nil {
				return err
			}
			return initLogger()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default: ~/.vibe-goa.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	pf.String("obo", "", "GO term definitions (default: ~/.vibe-goa/go-basic.obo)")
	pf.String("associations", "", "Gene association file, optionally gzipped (default: ~/.vibe-goa/fb.gaf.gz)")
	pf.Int("skip-lines", 5, "Leading association-file lines to skip")
	pf.Bool("strict-obo", false, "Fail on malformed OBO tag lines instead of skipping them")
	pf.Bool("obo-stanzas", false, "End a term at any OBO stanza header such as [Typedef], not only [Term]")

	_ = viper.BindPFlag("reference.obo", pf.Lookup("obo"))
	_ = viper.BindPFlag("reference.associations", pf.Lookup("associations"))
	_ = viper.BindPFlag("reference.skip_lines", pf.Lookup("skip-lines"))
	_ = viper.BindPFlag("reference.strict", pf.Lookup("strict-obo"))
	_ = viper.BindPFlag("reference.stanza_aware", pf.Lookup("obo-stanzas"))

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &usageError{err}
	})

	cmd.AddCommand(newAnnotateCmd())
	cmd.AddCommand(newLookupCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newDownloadCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// initConfig reads ~/.vibe-goa.yaml (or --config) and VIBE_GOA_* env vars.
// A missing default config file is not an error.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func initLogger() error {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	l, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = l
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  usageArgs(cobra.NoArgs),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vibe-goa version %s (%s) built %s\n", version, commit, date)
		},
	}
}

// usageArgs wraps an argument validator so its failures exit with ExitUsage.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return &usageError{err}
		}
		return nil
	}
}

// defaultDataDir is where download stores reference files.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, configName)
}
