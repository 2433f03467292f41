package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func useTempDataRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	viper.Set("paths.data_root", root)
	t.Cleanup(func() { viper.Set("paths.data_root", "") })
	return root
}

func TestTeamCreateCommand(t *testing.T) {
	root := useTempDataRoot(t)

	if err := execute(t, "team", "create", "alpha"); err != nil {
		t.Fatalf("team create failed: %v", err)
	}

	configPath := filepath.Join(root, "teams", "alpha", "config.json")
	if _, err := os.Stat(configPath); err != nil {
		t.Errorf("expected config file at %s: %v", configPath, err)
	}
}

func TestTeamCreateCommand_Duplicate(t *testing.T) {
	useTempDataRoot(t)

	if err := execute(t, "team", "create", "alpha"); err != nil {
		t.Fatal(err)
	}
	if err := execute(t, "team", "create", "alpha"); err == nil {
		t.Error("duplicate team create should fail")
	}
}

func TestTeamListCommand_FilterValidation(t *testing.T) {
	useTempDataRoot(t)

	if err := execute(t, "team", "list", "--filter", "[bad"); err == nil {
		t.Error("invalid glob pattern should fail")
	}
	if err := execute(t, "team", "list", "--filter", "proj-*"); err != nil {
		t.Errorf("valid glob pattern should succeed: %v", err)
	}
	teamListFilter = ""
}

func TestTeamCleanupCommand_Missing(t *testing.T) {
	useTempDataRoot(t)

	if err := execute(t, "team", "cleanup", "ghost"); err == nil {
		t.Error("cleanup of a missing team should fail")
	}
}

func TestVersionCommand(t *testing.T) {
	if err := execute(t, "version"); err != nil {
		t.Errorf("version command failed: %v", err)
	}
}
