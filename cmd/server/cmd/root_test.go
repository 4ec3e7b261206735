package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	expected := []string{"serve", "migrate", "version", "healthcheck"}
	for _, name := range expected {
		found := false
		for _, sub := range rootCmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("root command should have %q subcommand", name)
		}
	}
}

func TestVersionCommandOutput(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)

	output := out.String()
	for _, want := range []string{"Version:", "Git commit:", "Go version:"} {
		if !strings.Contains(output, want) {
			t.Errorf("version output missing %q:\n%s", want, output)
		}
	}
}

func TestMigrateDownRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if err := migrateDownCmd.RunE(migrateDownCmd, nil); err == nil {
		t.Error("migrate down without DATABASE_URL should fail")
	}
}
