package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := SetupCmd("test")
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmd := SetupCmd("test")

	for _, name := range []string{"info", "echo", "ping", "mcp"} {
		sub, _, err := cmd.Find([]string{name})
		if err != nil || sub == cmd {
			t.Errorf("expected %s subcommand to be registered", name)
		}
	}
}

func TestRootCommand_Version(t *testing.T) {
	cmd := SetupCmd("1.2.3")
	if cmd.Version != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %q", cmd.Version)
	}
}

func TestRootCommand_RejectsInvalidLogLevel(t *testing.T) {
	_, err := execute(t, "ping", "127.0.0.1:9", "--dry-run", "--log-level", "loud")

	if err == nil {
		t.Fatal("expected error for invalid log level")
	}
	if !strings.Contains(err.Error(), "invalid log level") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRootCommand_RejectsInvalidLogFormat(t *testing.T) {
	_, err := execute(t, "ping", "127.0.0.1:9", "--dry-run", "--log-format", "xml")

	if err == nil {
		t.Fatal("expected error for invalid log format")
	}
	if !strings.Contains(err.Error(), "invalid log format") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRootCommand_MissingConfigFile(t *testing.T) {
	_, err := execute(t, "ping", "127.0.0.1:9", "--dry-run", "--config", filepath.Join(t.TempDir(), "missing.yaml"))

	if err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestMCPCommand_RejectsArguments(t *testing.T) {
	_, err := execute(t, "mcp", "extra")

	if err == nil {
		t.Error("expected error with extra arguments")
	}
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "udpkit.yaml")
	data := []byte("log:\n  level: debug\n  format: json\nprobe:\n  count: 3\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	opts := &GlobalOptions{ConfigPath: path, LogLevel: "warn"}
	cfg, err := opts.loadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Log.Level != "warn" {
		t.Errorf("expected flag level warn to win, got %q", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("expected file format json, got %q", cfg.Log.Format)
	}
	if cfg.Probe.Count != 3 {
		t.Errorf("expected file count 3, got %d", cfg.Probe.Count)
	}
}

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	cfg, err := (&GlobalOptions{}).loadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}
