package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/iksnae/campusmind/internal"
	"github.com/spf13/cobra"
)

var (
	uploadSubject string
	uploadCode    string
	uploadYear    int
	uploadCourse  string
	uploadDocType string
)

// errAdminOnly is returned when the stored identity is not an admin
var errAdminOnly = errors.New("admin commands need an account with the admin role; sign in as an admin first")

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage accounts and documents (admins only)",
	Long: `Administration commands. They are only available when the signed-in
account has the admin role.`,
}

var adminStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how many students and approved staff are registered",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := adminClient(cmd)
		if err != nil {
			return err
		}
		stats, err := client.Analytics(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load analytics: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, headerStyle.Render("📊 Accounts"))
		fmt.Fprintf(out, "   Students: %d\n", stats.Students)
		fmt.Fprintf(out, "   Staff:    %d\n", stats.Staff)
		return nil
	},
}

var adminPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List staff accounts waiting for approval",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := adminClient(cmd)
		if err != nil {
			return err
		}
		users, err := client.PendingStaff(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list pending staff: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(users) == 0 {
			fmt.Fprintln(out, headerStyle.Render("📋 No staff accounts are waiting for approval"))
			return nil
		}
		fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("📋 %d staff account(s) waiting for approval", len(users))))
		fmt.Fprintln(out)

		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Username")+"\t"+titleStyle.Render("School")+"\t")
		for _, u := range users {
			school := u.School
			if school == "" {
				school = "—"
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t\n", codeStyle.Render(strconv.Itoa(u.ID)), u.Username, school)
		}
		_ = w.Flush()
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Approve with 'campusmind admin approve <id>'")
		return nil
	},
}

var adminApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a pending staff account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid user id %q", args[0])
		}
		client, err := adminClient(cmd)
		if err != nil {
			return err
		}
		status, err := client.ApproveUser(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("failed to approve user %d: %w", id, err)
		}
		internal.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("%s (id %d)", status, id))
		return nil
	},
}

var adminUploadPYQCmd = &cobra.Command{
	Use:   "upload-pyq <file>",
	Short: "Add a past question paper to the archive",
	Long: `Upload a past question paper. The server files it under documents/pyqs,
lists it in the paper search and adds it to the assistant's knowledge base.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if uploadSubject == "" || uploadCode == "" || uploadYear <= 0 {
			return errors.New("--subject, --code and --year are required")
		}
		client, err := adminClient(cmd)
		if err != nil {
			return err
		}

		up := internal.PYQUpload{
			SubjectName: uploadSubject,
			SubjectCode: uploadCode,
			Year:        uploadYear,
			Course:      uploadCourse,
			File:        args[0],
		}
		err = internal.NewSpinner(cmd.ErrOrStderr()).Run(cmd.Context(), "Uploading "+args[0], func() error {
			_, err := client.UploadPYQ(cmd.Context(), up)
			return err
		})
		if err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}
		internal.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Uploaded %s %s (%d)", uploadCode, uploadSubject, uploadYear))
		return nil
	},
}

var adminUploadDocCmd = &cobra.Command{
	Use:   "upload-doc <file>",
	Short: "Add a general document to the knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := adminClient(cmd)
		if err != nil {
			return err
		}

		err = internal.NewSpinner(cmd.ErrOrStderr()).Run(cmd.Context(), "Uploading "+args[0], func() error {
			_, err := client.UploadDocument(cmd.Context(), uploadDocType, args[0])
			return err
		})
		if err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}
		internal.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Uploaded %s as %s", args[0], uploadDocType))
		return nil
	},
}

// adminClient checks that the stored identity is an admin and returns a
// client for the configured server
func adminClient(cmd *cobra.Command) (*internal.Client, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	store, err := internal.OpenStorage(cfg.Storage)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	id, err := internal.Initialize(store)
	if errors.Is(err, internal.ErrLoginRequired) {
		return nil, errLoginHint
	}
	if err != nil {
		return nil, err
	}
	if id.Role != internal.RoleAdmin {
		internal.LogDebug("Refusing admin command for %s (role %q)", id.Username, id.Role)
		return nil, errAdminOnly
	}
	return newClient(cfg, internal.WithRole(id.Role))
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminStatsCmd, adminPendingCmd, adminApproveCmd, adminUploadPYQCmd, adminUploadDocCmd)

	adminUploadPYQCmd.Flags().StringVar(&uploadSubject, "subject", "", "Subject name")
	adminUploadPYQCmd.Flags().StringVar(&uploadCode, "code", "", "Subject code")
	adminUploadPYQCmd.Flags().IntVar(&uploadYear, "year", 0, "Exam year")
	adminUploadPYQCmd.Flags().StringVar(&uploadCourse, "course", "", "Course the paper belongs to")
	adminUploadDocCmd.Flags().StringVar(&uploadDocType, "type", "General", "Document category, e.g. Notices or Syllabus")
}
