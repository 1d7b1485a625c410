package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/iksnae/campusmind/internal"
	"github.com/spf13/cobra"
)

var (
	registerStaff    bool
	registerSchool   string
	registerPassword string
)

var registerCmd = &cobra.Command{
	Use:   "register [username]",
	Short: "Create a student or staff account",
	Long: `Create an account on the CampusMind server. Student accounts can sign in
right away. Staff accounts (--staff) belong to a school and must be approved
by an admin before they can sign in.

The password is read without echo when stdin is a terminal, otherwise from
the next input line.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		in := bufio.NewReader(cmd.InOrStdin())

		username := ""
		if len(args) == 1 {
			username = strings.TrimSpace(args[0])
		}
		if username == "" {
			fmt.Fprint(out, "Username: ")
			if username, err = readLine(in); err != nil {
				return fmt.Errorf("failed to read username: %w", err)
			}
		}
		if username == "" {
			return errors.New("username must not be empty")
		}

		password := registerPassword
		if password == "" {
			fmt.Fprint(out, "Password: ")
			p, err := readPassword(cmd.InOrStdin(), in)
			fmt.Fprintln(out)
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			password = p
		}

		client, err := newClient(cfg)
		if err != nil {
			return err
		}
		reg := internal.Registration{Username: username, Password: password, Staff: registerStaff, School: registerSchool}
		if _, err := client.Register(cmd.Context(), reg); err != nil {
			var remoteErr *internal.RemoteError
			if errors.As(err, &remoteErr) && remoteErr.Detail != "" {
				return fmt.Errorf("registration failed: %s", remoteErr.Detail)
			}
			return fmt.Errorf("registration failed: %w", err)
		}

		if registerStaff {
			internal.PrintSuccess(out, fmt.Sprintf("Staff account %s created.", username))
			internal.PrintInfo(out, "An admin has to approve it before you can sign in.")
			return nil
		}
		internal.PrintSuccess(out, fmt.Sprintf("Student account %s created.", username))
		internal.PrintInfo(out, fmt.Sprintf("Run 'campusmind login %s' to sign in.", username))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(registerCmd)
	registerCmd.Flags().BoolVar(&registerStaff, "staff", false, "Register a staff account (needs admin approval)")
	registerCmd.Flags().StringVar(&registerSchool, "school", internal.DefaultSchool, "School of a staff account")
	registerCmd.Flags().StringVar(&registerPassword, "password", "", "Password (prompted when omitted)")
}
