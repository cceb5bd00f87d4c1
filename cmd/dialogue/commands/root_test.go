package commands

import (
	"bytes"
	"strings"
	"testing"
)

// setupTestEnv points the CLI at a fresh temp config dir and resets
// package state between tests.
func setupTestEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	globalConfig = nil
	configLoadErr = nil
	verbose = false
	configDir = ""
	resetYes = false
	registerEmail, registerPhone = "", ""
	runUser, runProfession = "", ""
	runAudioIn, runAudioOut = "", ""
	runAutoAdvance = false
	return dir
}

func runCLI(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append([]string{"--config-dir", dir}, args...))
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersion(t *testing.T) {
	dir := setupTestEnv(t)
	stdout, _, err := runCLI(t, dir, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(stdout, "dialogue") {
		t.Fatalf("expected 'dialogue', got: %s", stdout)
	}
}

func TestResetRequiresConfirmation(t *testing.T) {
	dir := setupTestEnv(t)
	if _, _, err := runCLI(t, dir, "reset"); err == nil {
		t.Fatal("reset without --yes succeeded")
	}
	if _, _, err := runCLI(t, dir, "reset", "--yes"); err != nil {
		t.Fatalf("reset --yes: %v", err)
	}
}

func TestProgressWithoutIdentity(t *testing.T) {
	dir := setupTestEnv(t)
	stdout, _, err := runCLI(t, dir, "progress")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if !strings.Contains(stdout, "No identity yet") {
		t.Fatalf("unexpected output: %s", stdout)
	}
}

func TestRegisterWithoutIdentity(t *testing.T) {
	dir := setupTestEnv(t)
	if _, _, err := runCLI(t, dir, "register", "--email", "a@b.c"); err == nil {
		t.Fatal("register without identity succeeded")
	}
}

func TestRegisterRequiresContact(t *testing.T) {
	dir := setupTestEnv(t)
	if _, _, err := runCLI(t, dir, "register"); err == nil {
		t.Fatal("register without contact info succeeded")
	}
}

func TestGenerateWithoutKey(t *testing.T) {
	dir := setupTestEnv(t)
	_, _, err := runCLI(t, dir, "generate", "Engineer")
	if err == nil || !strings.Contains(err.Error(), "gemini_api_key") {
		t.Fatalf("generate without key = %v; want config error", err)
	}
}
