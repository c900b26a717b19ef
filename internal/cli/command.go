package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeberg.org/snonux/polyglot/internal"
)

// Viper keys for the ambient configuration
const (
	KeyStoragePath        = "storage.path"
	KeyServerAddr         = "server.addr"
	KeyHistoryCapture     = "history.capture"
	KeyHistoryArchiveDir  = "history.archive_dir"
	KeyTranslateTimeout   = "translate.timeout"
	KeyTranslateFrom      = "translate.from"
	KeyTranslateTo        = "translate.to"
	KeyBreakerMaxFailures = "breaker.max_failures"
	KeyBreakerOpenTimeout = "breaker.open_timeout"
	KeyGeminiBaseURL      = "gemini.base_url"
)

// RunFunc runs a subcommand
type RunFunc func(cmd *cobra.Command, args []string) error

// Handlers are the actions behind the subcommands
type Handlers struct {
	Translate     RunFunc
	HistoryList   RunFunc
	HistoryClear  RunFunc
	HistoryDelete RunFunc
	ConfigShow    RunFunc
	ConfigSet     RunFunc
	ConfigReset   RunFunc
	Models        RunFunc
	Serve         RunFunc
}

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags, h Handlers) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "polyglot",
		Short: "Translate text through an OpenAI-compatible API",
		Long: `polyglot translates text through a hosted, OpenAI-compatible
language model API and keeps a local history of translations.

Examples:
  polyglot translate "hello" --to fr    # Translate a single text
  polyglot translate --batch texts.txt  # Translate every line of a file
  polyglot history list                 # Show past translations
  polyglot config set model gpt-4o      # Change the model
  polyglot serve                        # Start the JSON API`,
		Version:       internal.Version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.polyglot.yaml)")
	rootCmd.PersistentFlags().StringVar(&flags.DBPath, "db", flags.DBPath, "SQLite database file")
	viper.BindPFlag(KeyStoragePath, rootCmd.PersistentFlags().Lookup("db"))
	rootCmd.PersistentFlags().StringVar(&flags.Capture, "capture", flags.Capture, "History capture policy: settlement or request")
	viper.BindPFlag(KeyHistoryCapture, rootCmd.PersistentFlags().Lookup("capture"))

	rootCmd.AddCommand(
		newTranslateCommand(flags, h.Translate),
		newHistoryCommand(flags, h),
		newConfigCommand(h),
		newModelsCommand(flags, h.Models),
		newServeCommand(flags, h.Serve),
	)

	return rootCmd
}

func newTranslateCommand(flags *Flags, run RunFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate [text]",
		Short: "Translate a text or a batch file",
		Args: func(cmd *cobra.Command, args []string) error {
			if flags.BatchFile == "" && len(args) != 1 {
				return fmt.Errorf("expected exactly one text to translate, or --batch")
			}
			if flags.BatchFile != "" && len(args) > 0 {
				return fmt.Errorf("cannot combine a text argument with --batch")
			}
			return nil
		},
		RunE: run,
	}

	cmd.Flags().StringVar(&flags.From, "from", flags.From, "Source language (auto to detect)")
	cmd.Flags().StringVar(&flags.To, "to", flags.To, "Target language")
	cmd.Flags().StringVar(&flags.BatchFile, "batch", "", "Translate texts from file (one per line, optional '= lang')")
	cmd.Flags().DurationVar(&flags.Timeout, "timeout", flags.Timeout, "Timeout per translation")

	bindFlagsToViper(cmd)
	return cmd
}

func newHistoryCommand(flags *Flags, h Handlers) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect or clear the translation history",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List past translations, newest first",
		Args:  cobra.NoArgs,
		RunE:  h.HistoryList,
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all history records",
		Args:  cobra.NoArgs,
		RunE:  h.HistoryClear,
	}
	clearCmd.Flags().BoolVar(&flags.Archive, "archive", false, "Write the history to an archive file before clearing")
	clearCmd.Flags().StringVar(&flags.ArchiveDir, "archive-dir", flags.ArchiveDir, "Directory receiving the archive/ folder")
	viper.BindPFlag(KeyHistoryArchiveDir, clearCmd.Flags().Lookup("archive-dir"))

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove one history record",
		Args:  cobra.ExactArgs(1),
		RunE:  h.HistoryDelete,
	}

	cmd.AddCommand(listCmd, clearCmd, deleteCmd)
	return cmd
}

func newConfigCommand(h Handlers) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the translation settings",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the current settings",
		Args:  cobra.NoArgs,
		RunE:  h.ConfigShow,
	}
	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting (api-url, api-key, stream, model, temperature)",
		Args:  cobra.ExactArgs(2),
		RunE:  h.ConfigSet,
	}
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Restore the default settings",
		Args:  cobra.NoArgs,
		RunE:  h.ConfigReset,
	}

	cmd.AddCommand(showCmd, setCmd, resetCmd)
	return cmd
}

func newModelsCommand(flags *Flags, run RunFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List supported models",
		Args:  cobra.NoArgs,
		RunE:  run,
	}
	cmd.Flags().BoolVar(&flags.Remote, "remote", false, "Also list the models offered by the configured endpoint")
	return cmd
}

func newServeCommand(flags *Flags, run RunFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Args:  cobra.NoArgs,
		RunE:  run,
	}
	cmd.Flags().StringVar(&flags.Addr, "addr", flags.Addr, "Listen address")
	viper.BindPFlag(KeyServerAddr, cmd.Flags().Lookup("addr"))
	return cmd
}

func bindFlagsToViper(cmd *cobra.Command) {
	viper.BindPFlag(KeyTranslateFrom, cmd.Flags().Lookup("from"))
	viper.BindPFlag(KeyTranslateTo, cmd.Flags().Lookup("to"))
	viper.BindPFlag(KeyTranslateTimeout, cmd.Flags().Lookup("timeout"))
}

// InitConfig initializes viper configuration
func InitConfig(cfgFile string) {
	// A missing .env file is fine
	_ = godotenv.Load()

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		// Search config in home directory with name ".polyglot" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".polyglot")
	}

	viper.SetDefault(KeyBreakerMaxFailures, 5)
	viper.SetDefault(KeyBreakerOpenTimeout, "30s")

	// Environment variables, e.g. POLYGLOT_STORAGE_PATH
	viper.SetEnvPrefix("POLYGLOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
