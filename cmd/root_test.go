package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/iksnae/campusmind/internal"
	"github.com/iksnae/campusmind/testutil"
)

// isolate points HOME at a temp dir and clears CAMPUSMIND_* variables so no
// real config file or environment leaks into a test
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{"SERVER", "STORAGE", "TIMEOUT", "MAX_PENDING", "LOG_LEVEL"} {
		t.Setenv("CAMPUSMIND_"+key, "")
	}
}

// resetFlags restores every flag of c and its children to its default so
// values do not carry over between executions
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// executeCommand runs the root command with args and stdin and returns the
// combined output
func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	configFile = ""
	t.Cleanup(func() { internal.SetLogLevel(internal.LogLevelWarn) })

	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return out.String(), err
}

// seedIdentity stores a signed-in user at path
func seedIdentity(t *testing.T, path, username, role string) {
	t.Helper()
	store, err := internal.OpenStorage(path)
	if err != nil {
		t.Fatalf("OpenStorage() error = %v", err)
	}
	defer store.Close()
	if err := store.SetItem(internal.KeyUsername, username); err != nil {
		t.Fatalf("SetItem() error = %v", err)
	}
	if role != "" {
		if err := store.SetItem(internal.KeyRole, role); err != nil {
			t.Fatalf("SetItem() error = %v", err)
		}
	}
}

func TestRootCommand(t *testing.T) {
	isolate(t)

	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{
			name: "version flag",
			args: []string{"--version"},
			want: "dev (commit: unknown",
		},
		{
			name: "help flag",
			args: []string{"--help"},
			want: "campusmind chat",
		},
		{
			name:    "nonexistent command",
			args:    []string{"nonexistent-command"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeCommand(t, "", tt.args...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("rootCmd.Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.want != "" && !strings.Contains(out, tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, out)
			}
		})
	}
}

func TestRootCommand_SubcommandsRegistered(t *testing.T) {
	want := []string{"chat", "refresh", "login", "logout", "whoami", "register", "admin", "pyqs", "healthcheck"}
	for _, name := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("%s command not registered", name)
		}
	}
}

func TestLoadConfig_Precedence(t *testing.T) {
	isolate(t)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	content := "server: http://file.example:8000\ntimeout: 5s\nmax_pending: 2\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("CAMPUSMIND_MAX_PENDING", "4")

	var got *internal.Config
	showConfig := &cobra.Command{
		Use: "show-config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			got = cfg
			return err
		},
	}
	rootCmd.AddCommand(showConfig)
	t.Cleanup(func() { rootCmd.RemoveCommand(showConfig) })

	_, err := executeCommand(t, "", "show-config", "--config", cfgPath, "--storage", filepath.Join(dir, "s.db"), "--timeout", "1s")
	if err != nil {
		t.Fatalf("show-config error = %v", err)
	}

	if got.Server != "http://file.example:8000" {
		t.Errorf("Server = %q, want value from config file", got.Server)
	}
	if got.MaxPending != 4 {
		t.Errorf("MaxPending = %d, want 4 from environment", got.MaxPending)
	}
	if got.Timeout != time.Second {
		t.Errorf("Timeout = %s, want 1s from flag", got.Timeout)
	}
	if got.Storage != filepath.Join(dir, "s.db") {
		t.Errorf("Storage = %q, want flag value", got.Storage)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	isolate(t)
	_, err := executeCommand(t, "", "whoami", "--server", "ftp://campus", "--storage", testutil.StoragePath(t))
	if err == nil {
		t.Fatal("expected error for unsupported server scheme")
	}
	if !strings.Contains(err.Error(), "server") {
		t.Errorf("error = %v, want it to name the server key", err)
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := executeCommand(t, "", "whoami", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing --config file")
	}
}
