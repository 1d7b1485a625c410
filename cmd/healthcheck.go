package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/campusmind/internal"
	"github.com/spf13/cobra"
)

var (
	healthcheckVerbose bool
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that campusmind can reach its storage and server",
	Long: `Check the health of campusmind by verifying:
  • Configuration
  • Local storage accessibility
  • Stored identity
  • Server reachability

This command is useful for debugging setup issues before opening a chat.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, sectionStyle.Render("🔍 CampusMind Health Check"))
		fmt.Fprintln(out)

		// Step 1: Configuration
		fmt.Fprintln(out, infoStyle.Render("Step 1: Loading configuration..."))
		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Invalid configuration:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		fmt.Fprintln(out, successStyle.Render("✅ Configuration loaded"))
		if healthcheckVerbose {
			source := cfg.ConfigFile
			if source == "" {
				source = "defaults and environment"
			}
			fmt.Fprintf(out, "   Source: %s\n", source)
			fmt.Fprintf(out, "   Server: %s\n", cfg.Server)
			fmt.Fprintf(out, "   Timeout: %s\n", timeoutLabel(cfg))
			fmt.Fprintf(out, "   Max pending: %s\n", maxPendingLabel(cfg))
		}
		fmt.Fprintln(out)

		// Step 2: Local storage
		fmt.Fprintln(out, infoStyle.Render("Step 2: Inspecting local storage..."))
		var store *internal.Storage
		if _, statErr := os.Stat(cfg.Storage); errors.Is(statErr, fs.ErrNotExist) {
			fmt.Fprintln(out, warningStyle.Render("⚠️  Local storage not created yet"))
			fmt.Fprintf(out, "   It will be created at %s on first login\n", cfg.Storage)
		} else {
			store, err = internal.OpenStorageReadOnly(cfg.Storage)
			if err != nil {
				fmt.Fprintln(out, errorStyle.Render("❌ Failed to open local storage:"), err)
				return fmt.Errorf("health check failed: %w", err)
			}
			defer store.Close()
			fmt.Fprintln(out, successStyle.Render("✅ Local storage available"))
			if healthcheckVerbose {
				fmt.Fprintf(out, "   Database: %s\n", store.Path())
				if items, err := store.Items("%"); err == nil {
					fmt.Fprintf(out, "   Keys: %d\n", len(items))
				}
			}
		}
		fmt.Fprintln(out)

		// Step 3: Identity
		fmt.Fprintln(out, infoStyle.Render("Step 3: Checking stored identity..."))
		signedIn := false
		id, err := identityFrom(store)
		switch {
		case errors.Is(err, internal.ErrLoginRequired):
			fmt.Fprintln(out, warningStyle.Render("⚠️  Not signed in"))
			fmt.Fprintln(out, "   Run 'campusmind login' before opening the chat")
		case err != nil:
			fmt.Fprintln(out, errorStyle.Render("❌ Failed to read identity:"), err)
			return fmt.Errorf("health check failed: %w", err)
		default:
			signedIn = true
			fmt.Fprintln(out, successStyle.Render("✅ Signed in as "+id.Greeting))
			if healthcheckVerbose && id.Role != "" {
				fmt.Fprintf(out, "   Role: %s\n", id.Role)
			}
		}
		fmt.Fprintln(out)

		// Step 4: Server
		fmt.Fprintln(out, infoStyle.Render("Step 4: Contacting server..."))
		client, err := newClient(cfg)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Invalid server address:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		status, err := client.Ping(cmd.Context())
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Server unreachable:"), err)
			fmt.Fprintln(out)
			fmt.Fprintln(out, sectionStyle.Render("📊 Summary"))
			fmt.Fprintln(out)
			fmt.Fprintln(out, errorStyle.Render("❌ Health check failed"))
			fmt.Fprintf(out, "   • Nothing answered at %s\n", cfg.Server)
			fmt.Fprintln(out, "   • Chat replies would show the offline message")
			return fmt.Errorf("health check failed: server unreachable")
		}
		fmt.Fprintln(out, successStyle.Render("✅ Server reachable"))
		if healthcheckVerbose {
			fmt.Fprintf(out, "   %s answered with HTTP %d\n", cfg.Server, status)
		}
		fmt.Fprintln(out)

		// Summary
		fmt.Fprintln(out, sectionStyle.Render("📊 Summary"))
		fmt.Fprintln(out)
		if signedIn {
			fmt.Fprintln(out, successStyle.Render("✅ Health check passed!"))
			fmt.Fprintln(out, successStyle.Render("   • Storage: Available"))
			fmt.Fprintln(out, successStyle.Render("   • Server: Reachable"))
			return nil
		}
		fmt.Fprintln(out, warningStyle.Render("⚠️  Server reachable but not signed in"))
		fmt.Fprintln(out, "   • Storage and server are working")
		fmt.Fprintln(out, "   • Sign in to start chatting")
		return nil
	},
}

// identityFrom reads the stored identity; a store that was never created
// means nobody has signed in
func identityFrom(store *internal.Storage) (*internal.Identity, error) {
	if store == nil {
		return nil, internal.ErrLoginRequired
	}
	return internal.Initialize(store)
}

func timeoutLabel(cfg *internal.Config) string {
	if cfg.Timeout <= 0 {
		return "none"
	}
	return cfg.Timeout.String()
}

func maxPendingLabel(cfg *internal.Config) string {
	if cfg.MaxPending <= 0 {
		return "unbounded"
	}
	return fmt.Sprint(cfg.MaxPending)
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVarP(&healthcheckVerbose, "verbose", "v", false, "Show detailed diagnostic information")
}
