package e2e

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitGuardsExistingWorkspace(t *testing.T) {
	bin, ws, _ := setupCLI(t)
	other := newNoteServer(t)

	out, err := tryRun(t, ws, bin, "init", other.URL)
	if err == nil {
		t.Fatalf("Expected init over an existing workspace to fail, got: %s", out)
	}
	if !strings.Contains(out, "already exists") {
		t.Errorf("Unexpected error output: %s", out)
	}

	run(t, ws, bin, "init", other.URL, "--overwrite")
	config, err := os.ReadFile(filepath.Join(ws, ".arbor", "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(config), other.URL) {
		t.Errorf("Configuration was not replaced: %s", config)
	}
}

func TestTokenPrecedence(t *testing.T) {
	tmp := t.TempDir()
	srv := newNoteServer(t)
	bin := buildArborBinary(t, tmp)

	ws := filepath.Join(tmp, "workspace")
	if err := os.Mkdir(ws, 0755); err != nil {
		t.Fatal(err)
	}
	run(t, ws, bin, "init", srv.URL)

	// No token anywhere: pull refuses before touching the server.
	out, err := tryRun(t, ws, bin, "pull")
	if err == nil {
		t.Fatalf("Expected pull without a token to fail, got: %s", out)
	}
	if !strings.Contains(out, "set-token") {
		t.Errorf("Expected a hint at set-token, got: %s", out)
	}

	// The environment variable is picked up by child processes.
	t.Setenv("ARBOR_ETAPI_TOKEN", "env-token")
	run(t, ws, bin, "pull")
	if srv.lastToken() != "env-token" {
		t.Errorf("Server saw token %q, want the environment one", srv.lastToken())
	}

	// The environment still beats the stored file.
	run(t, ws, bin, "set-token", "file-token")
	run(t, ws, bin, "pull", "--overwrite")
	if srv.lastToken() != "env-token" {
		t.Errorf("Server saw token %q, want the environment one", srv.lastToken())
	}

	// An explicit flag beats everything.
	run(t, ws, bin, "pull", "--overwrite", "--token", "flag-token")
	if srv.lastToken() != "flag-token" {
		t.Errorf("Server saw token %q, want the flag one", srv.lastToken())
	}
}

func TestPushRejectsStructuralEdits(t *testing.T) {
	bin, ws, srv := setupCLI(t)
	run(t, ws, bin, "pull")

	draft := filepath.Join(ws, "store", "root", "[link] Draft")
	if err := os.Mkdir(draft, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(draft, "content.html"), []byte("<p>draft</p>"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := tryRun(t, ws, bin, "push")
	if err == nil {
		t.Fatalf("Expected push with a drafted note to fail, got: %s", out)
	}
	if !strings.Contains(out, "is not supported") {
		t.Errorf("Expected the unsupported difference to be reported, got: %s", out)
	}
	if !strings.Contains(out, "Tip:") {
		t.Errorf("Expected the push hint, got: %s", out)
	}
	if _, ok := srv.uploaded("page"); ok {
		t.Error("Nothing was edited, yet content was uploaded")
	}
}

func TestOperateFromOutsideTheWorkspace(t *testing.T) {
	bin, ws, _ := setupCLI(t)

	// --dir points the command at the workspace from anywhere.
	out := run(t, t.TempDir(), bin, "--dir", ws, "pull")
	if !strings.Contains(out, "Pulled 3 notes under 'root'.") {
		t.Errorf("Unexpected pull output: %s", out)
	}

	// Commands also resolve the workspace root from a subdirectory.
	out = run(t, filepath.Join(ws, "store", "page"), bin, "diff")
	if !strings.Contains(out, "Local store matches the remote.") {
		t.Errorf("Expected a clean diff from a subdirectory, got: %s", out)
	}
}

func TestVersionCommand(t *testing.T) {
	tmp := t.TempDir()
	bin := buildArborBinary(t, tmp)

	out := run(t, tmp, bin, "version")
	if !strings.Contains(out, "arbor version 0.3.1") {
		t.Errorf("Unexpected version output: %s", out)
	}
}
