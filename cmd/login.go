package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/iksnae/campusmind/internal"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	loginOffline  bool
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Sign in and remember who you are",
	Long: `Sign in to the CampusMind server and store your username and role in
local storage. The chat surface refuses to open without them.

The password is read without echo when stdin is a terminal, otherwise from
the next input line. With --offline the username is stored without
contacting the server.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		store, err := internal.OpenStorage(cfg.Storage)
		if err != nil {
			return err
		}
		defer store.Close()

		username := ""
		if len(args) == 1 {
			username = args[0]
		}

		in := bufio.NewReader(cmd.InOrStdin())
		res, err := performLogin(cmd, in, store, cfg, username)
		if err != nil {
			return err
		}

		id := &internal.Identity{Username: res.Username, Role: res.Role, Greeting: internal.Capitalize(res.Username)}
		internal.PrintSuccess(cmd.OutOrStdout(), "Signed in. "+internal.FormatGreeting(id))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		store, err := internal.OpenStorage(cfg.Storage)
		if err != nil {
			return err
		}
		defer store.Close()

		for _, key := range []string{internal.KeyUsername, internal.KeyRole} {
			if err := store.RemoveItem(key); err != nil {
				return err
			}
		}
		internal.PrintSuccess(cmd.OutOrStdout(), "Signed out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		store, err := internal.OpenStorage(cfg.Storage)
		if err != nil {
			return err
		}
		defer store.Close()

		id, err := internal.Initialize(store)
		if errors.Is(err, internal.ErrLoginRequired) {
			return errLoginHint
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), internal.FormatGreeting(id))
		return nil
	},
}

// performLogin asks for any missing credentials, verifies them against the
// server (unless --offline) and stores the resulting identity
func performLogin(cmd *cobra.Command, in *bufio.Reader, store *internal.Storage, cfg *internal.Config, username string) (*internal.LoginResult, error) {
	out := cmd.OutOrStdout()

	username = strings.TrimSpace(username)
	if username == "" {
		fmt.Fprint(out, "Username: ")
		line, err := readLine(in)
		if err != nil {
			return nil, fmt.Errorf("failed to read username: %w", err)
		}
		username = line
	}
	if username == "" {
		return nil, errors.New("username must not be empty")
	}

	res := &internal.LoginResult{Username: username}
	if !loginOffline {
		password := loginPassword
		if password == "" {
			fmt.Fprint(out, "Password: ")
			p, err := readPassword(cmd.InOrStdin(), in)
			fmt.Fprintln(out)
			if err != nil {
				return nil, fmt.Errorf("failed to read password: %w", err)
			}
			password = p
		}

		client, err := newClient(cfg)
		if err != nil {
			return nil, err
		}
		res, err = client.Login(cmd.Context(), username, password)
		if err != nil {
			var remoteErr *internal.RemoteError
			if errors.As(err, &remoteErr) && remoteErr.Detail != "" {
				return nil, fmt.Errorf("login failed: %s", remoteErr.Detail)
			}
			return nil, fmt.Errorf("login failed: %w", err)
		}
	}

	if err := store.SetItem(internal.KeyUsername, res.Username); err != nil {
		return nil, err
	}
	if res.Role != "" {
		if err := store.SetItem(internal.KeyRole, res.Role); err != nil {
			return nil, err
		}
	} else if err := store.RemoveItem(internal.KeyRole); err != nil {
		return nil, err
	}

	internal.LogInfo("Stored identity for %s in %s", res.Username, store.Path())
	return res, nil
}

// readLine reads one trimmed line; a final line without newline is accepted
func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads without echo from a terminal, otherwise a plain line
func readPassword(raw io.Reader, in *bufio.Reader) (string, error) {
	if f, ok := raw.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	loginCmd.Flags().BoolVar(&loginOffline, "offline", false, "Store the username without contacting the server")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Password (prompted when omitted)")
}
