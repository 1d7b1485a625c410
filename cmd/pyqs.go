package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/campusmind/internal"
	"github.com/spf13/cobra"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	codeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	yearStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	linkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

var pyqsCmd = &cobra.Command{
	Use:   "pyqs <query>",
	Short: "Search past exam papers",
	Long:  `Search past year question papers by subject name or code and print their download links.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		client, err := newClient(cfg)
		if err != nil {
			return err
		}

		query := strings.Join(args, " ")
		results, err := client.SearchPYQs(cmd.Context(), query)
		if err != nil {
			return fmt.Errorf("failed to search past papers: %w", err)
		}

		displayPYQs(cmd.OutOrStdout(), client, query, results)
		return nil
	},
}

func displayPYQs(out io.Writer, client *internal.Client, query string, results []internal.PYQ) {
	if len(results) == 0 {
		fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("📋 No papers found for %q", query)))
		return
	}

	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("📋 Found %d paper(s)", len(results))))
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, titleStyle.Render("Code")+"\t"+titleStyle.Render("Subject")+"\t"+titleStyle.Render("Year")+"\t"+titleStyle.Render("Link")+"\t")

	for _, p := range results {
		name := truncate(p.Name, 40)
		year := "—"
		if p.Year > 0 {
			year = strconv.Itoa(p.Year)
		}
		link := "—"
		if p.Path != "" {
			link = client.DocumentURL(p.Path)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", codeStyle.Render(p.Code), name, yearStyle.Render(year), linkStyle.Render(link))
	}
	_ = w.Flush()
}

// truncate shortens s to at most n runes, marking the cut with "..."
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

func init() {
	rootCmd.AddCommand(pyqsCmd)
}
