package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/iksnae/campusmind/internal"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configFile string
	version    string = "dev"
	commit     string = "unknown"
	date       string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "campusmind",
	Short: "Chat with the CampusMind campus assistant from your terminal",
	Long: `A terminal client for the CampusMind campus assistant.

Ask questions about your campus documents, trigger a knowledge base refresh
after new PDFs land in the server's documents folder, and look up past exam
papers.

Features:
  • Interactive chat with overlapping requests
  • Knowledge base refresh behind a confirmation prompt
  • Past paper search with download links
  • Transcript export (Markdown, JSON, JSONL, YAML)
  • Student and staff registration, account approval for admins

Quick Start:
  campusmind register alice              # Create a student account
  campusmind login alice                 # Sign in
  campusmind chat                        # Start chatting
  campusmind chat -m "exam timetable?"   # Ask a single question
  campusmind refresh                     # Re-index the documents folder

Settings are read from ~/.campusmind/config.yaml and CAMPUSMIND_* environment
variables; flags override both.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetVerbose(verbose)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig resolves settings from defaults, the config file, the
// environment and the flags of cmd, in increasing order of precedence
func loadConfig(cmd *cobra.Command) (*internal.Config, error) {
	v := internal.NewViper()
	for key, flag := range map[string]string{
		"server":      "server",
		"storage":     "storage",
		"timeout":     "timeout",
		"max_pending": "max-pending",
		"log_level":   "log-level",
	} {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag --%s: %w", flag, err)
			}
		}
	}

	cfg, err := internal.LoadConfig(v, configFile)
	if err != nil {
		return nil, err
	}

	if !verbose {
		level, err := internal.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		internal.SetLogLevel(level)
	}
	internal.LogDebug("Using server %s, storage %s", cfg.Server, cfg.Storage)
	if cfg.ConfigFile != "" {
		internal.LogDebug("Loaded config from %s", cfg.ConfigFile)
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default ~/.campusmind/config.yaml)")
	rootCmd.PersistentFlags().String("server", internal.DefaultServer, "CampusMind server URL")
	rootCmd.PersistentFlags().String("storage", "", "Local storage database (default ~/.campusmind/storage.db)")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Per-request timeout, 0 waits indefinitely")
	rootCmd.PersistentFlags().Int("max-pending", 0, "Maximum chat requests in flight, 0 for no limit")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (error, warn, info, debug)")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
