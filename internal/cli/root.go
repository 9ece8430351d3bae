package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mvp-joe/flowmark/internal/config"
	"github.com/mvp-joe/flowmark/internal/logging"
	"github.com/mvp-joe/flowmark/internal/pipeline"
)

var (
	cfgFile string
	verbose bool

	outputPath string
	vfcPath    string

	// Loaded by PersistentPreRunE before any command runs.
	appConfig *config.Config
	logger    *zap.Logger
)

// rootCmd converts a single document when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "flowmark <input.py>",
	Short: "Annotate Python structure and emit VFC flow-chart transcripts",
	Long: `flowmark marks every function, method, class, if/elif, for, while, with
and try block of a Python document with #beginX / #endX comment pairs, then
turns the annotated document into a Visustin flow-chart (VFC) transcript.

The annotated document goes to -o, or to stdout when -o is absent. The
transcript goes to --vfc, default <input>.vfc. A syntax error is reported on
stderr and nothing is written.

Use - as the input to read stdin; the transcript then needs an explicit --vfc.

Examples:
  flowmark app.py
  flowmark app.py -o app.marked.py --vfc app.vfc
  cat app.py | flowmark - --vfc app.vfc`,
	Args:              cobra.ExactArgs(1),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runConvert,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .flowmark/config.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().Bool("skip-existing", false, "do not insert tags an earlier pass already wrote")
	rootCmd.PersistentFlags().Bool("normalize-emphasis", true, "retry a failed parse with *name* emphasis removed")

	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the annotated document here instead of stdout")
	rootCmd.Flags().StringVar(&vfcPath, "vfc", "", "write the transcript here (default <input>.vfc)")
}

// setup loads configuration, applies flag overrides and builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.NewFileLoader(cfgFile).Load()
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := applyFlagOverrides(cmd, cfg); err != nil {
		return err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	appConfig = cfg
	logger = log
	return nil
}

// applyFlagOverrides copies explicitly set annotation flags over cfg.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("skip-existing") {
		v, err := flags.GetBool("skip-existing")
		if err != nil {
			return err
		}
		cfg.Annotate.SkipExisting = v
	}
	if flags.Changed("normalize-emphasis") {
		v, err := flags.GetBool("normalize-emphasis")
		if err != nil {
			return err
		}
		cfg.Annotate.NormalizeEmphasis = v
	}
	return nil
}

func pipelineConfig(cfg *config.Config) pipeline.Config {
	return pipeline.Config{
		NormalizeEmphasis: cfg.Annotate.NormalizeEmphasis,
		SkipExisting:      cfg.Annotate.SkipExisting,
	}
}
