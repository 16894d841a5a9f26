package platform_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/core"
)

func TestInit(t *testing.T) {
	t.Run("Creates Configuration", func(t *testing.T) {
		f := bookStore()
		dir, server := setupWorkspace(t, f)

		config, err := os.ReadFile(filepath.Join(dir, ".arbor", "config.yaml"))
		if err != nil {
			t.Fatalf("Configuration not written: %v", err)
		}
		if !strings.Contains(string(config), "source_url: "+server.URL) {
			t.Errorf("Configuration missing server URL: %s", config)
		}
		if !strings.Contains(string(config), "root_note_id: root") {
			t.Errorf("Configuration missing default root note: %s", config)
		}

		// The workspace is found from anywhere below its root.
		nested := filepath.Join(dir, "store", "deep")
		if err := os.MkdirAll(nested, 0755); err != nil {
			t.Fatal(err)
		}
		root, err := arbor.FindWorkspaceRoot(nested)
		if err != nil {
			t.Fatalf("FindWorkspaceRoot failed: %v", err)
		}
		if filepath.Clean(root) != filepath.Clean(dir) {
			t.Errorf("FindWorkspaceRoot = %v, want %v", root, dir)
		}
	})

	t.Run("Refuses Reconfiguration Without Overwrite", func(t *testing.T) {
		f := bookStore()
		dir, _ := setupWorkspace(t, f)
		ctx := context.Background()

		if err := arbor.Init(ctx, dir, "http://other:9999"); err == nil {
			t.Fatal("Expected init over an existing workspace to fail")
		}

		if err := arbor.Init(ctx, dir, "http://other:9999", arbor.WithOverwrite(true)); err != nil {
			t.Fatalf("Overwriting init failed: %v", err)
		}
		config, err := os.ReadFile(filepath.Join(dir, ".arbor", "config.yaml"))
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(config), "http://other:9999") {
			t.Errorf("Configuration was not replaced: %s", config)
		}
	})

	t.Run("Custom Root Note", func(t *testing.T) {
		dir := t.TempDir()
		err := arbor.Init(context.Background(), dir, "http://localhost:8080", arbor.WithRootNoteID("book1"))
		if err != nil {
			t.Fatalf("Init failed: %v", err)
		}
		config, err := os.ReadFile(filepath.Join(dir, ".arbor", "config.yaml"))
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(config), "root_note_id: book1") {
			t.Errorf("Configuration missing custom root note: %s", config)
		}
	})

	t.Run("Requires a Server URL", func(t *testing.T) {
		if err := arbor.Init(context.Background(), t.TempDir(), ""); err == nil {
			t.Error("Expected init without a server URL to fail")
		}
	})
}

func TestSetToken(t *testing.T) {
	t.Run("Stores the Token File", func(t *testing.T) {
		f := bookStore()
		dir, _ := setupWorkspace(t, f)

		path := filepath.Join(dir, ".arbor", "etapi_token")
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("Token file not written: %v", err)
		}
		if info.Mode().Perm() != 0o600 {
			t.Errorf("Token file mode = %v, want 0600", info.Mode().Perm())
		}

		token, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if string(token) != "test-token\n" {
			t.Errorf("Token file content = %q", token)
		}
	})

	t.Run("Requires a Workspace", func(t *testing.T) {
		if err := arbor.SetToken(t.TempDir(), "tok"); err == nil {
			t.Error("Expected set-token outside a workspace to fail")
		}
	})

	t.Run("Refuses an Empty Token", func(t *testing.T) {
		f := bookStore()
		dir, _ := setupWorkspace(t, f)
		if err := arbor.SetToken(dir, ""); err == nil {
			t.Error("Expected an empty token to be refused")
		}
	})
}

func TestPull(t *testing.T) {
	t.Run("Requires a Token", func(t *testing.T) {
		f := bookStore()
		server := serveStore(t, f)

		dir := t.TempDir()
		if err := arbor.Init(context.Background(), dir, server.URL); err != nil {
			t.Fatalf("Init failed: %v", err)
		}

		_, err := arbor.Pull(context.Background(), dir)
		if err == nil || !strings.Contains(err.Error(), "no token configured") {
			t.Errorf("Expected a missing-token error, got %v", err)
		}
	})

	t.Run("Explicit Token Wins", func(t *testing.T) {
		f := bookStore()
		dir, _ := setupWorkspace(t, f)

		_, err := arbor.Pull(context.Background(), dir, arbor.WithToken("explicit"))
		if err != nil {
			t.Fatalf("Pull failed: %v", err)
		}
		if f.lastToken() != "explicit" {
			t.Errorf("Server saw token %q, want the explicit one", f.lastToken())
		}
	})

	t.Run("Missing Root Is Fatal", func(t *testing.T) {
		f := bookStore()
		server := serveStore(t, f)

		dir := t.TempDir()
		ctx := context.Background()
		if err := arbor.Init(ctx, dir, server.URL, arbor.WithRootNoteID("ghost")); err != nil {
			t.Fatalf("Init failed: %v", err)
		}
		if err := arbor.SetToken(dir, "test-token"); err != nil {
			t.Fatal(err)
		}

		_, err := arbor.Pull(ctx, dir)
		if err == nil {
			t.Fatal("Expected pull of a missing root to fail")
		}
	})
}

func TestDiffPatches(t *testing.T) {
	f := bookStore()
	dir, _ := setupWorkspace(t, f)
	ctx := context.Background()

	if _, err := arbor.Pull(ctx, dir); err != nil {
		t.Fatalf("Pull failed: %v", err)
	}

	edited := []byte("<p>two</p>")
	if err := os.WriteFile(filepath.Join(dir, "store", "n1", "content.html"), edited, 0644); err != nil {
		t.Fatal(err)
	}

	// Without the content option, entries carry no patch.
	report, err := arbor.Diff(ctx, dir)
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	if len(report.Entries) != 1 || report.Entries[0].Patch != "" {
		t.Fatalf("Expected one bare entry, got %+v", report.Entries)
	}

	report, err = arbor.Diff(ctx, dir, arbor.WithContentDiff(true))
	if err != nil {
		t.Fatalf("Diff with content failed: %v", err)
	}
	if len(report.Entries) != 1 {
		t.Fatalf("Expected one entry, got %d", len(report.Entries))
	}
	patch := report.Entries[0].Patch
	if !strings.Contains(patch, "-<p>one</p>") || !strings.Contains(patch, "+<p>two</p>") {
		t.Errorf("Patch does not show the edit:\n%s", patch)
	}
	if !strings.Contains(patch, "remote/n1") || !strings.Contains(patch, "local/n1") {
		t.Errorf("Patch does not name its sides:\n%s", patch)
	}
}

func TestPushReportsEveryUnsupportedDiff(t *testing.T) {
	f := bookStore()
	dir, _ := setupWorkspace(t, f)
	ctx := context.Background()

	if _, err := arbor.Pull(ctx, dir); err != nil {
		t.Fatalf("Pull failed: %v", err)
	}

	// Two independent structural edits: an extra attribute on n1 and a
	// drafted child under root. Both must be reported, not just the first.
	sidecar := filepath.Join(dir, "store", "n1", "attributes.yaml")
	attrs := "- id: a1\n  type: label\n  name: color\n  value: blue\n  position: 10\n" +
		"- id: a2\n  type: label\n  name: status\n  value: draft\n  position: 20\n"
	if err := os.WriteFile(sidecar, []byte(attrs), 0644); err != nil {
		t.Fatal(err)
	}

	draft := filepath.Join(dir, "store", "root", "[link] Draft")
	if err := os.Mkdir(draft, 0755); err != nil {
		t.Fatal(err)
	}

	report, err := arbor.Push(ctx, dir)
	if err == nil {
		t.Fatal("Expected push with structural edits to fail")
	}
	if len(report.Unsupported) != 2 {
		t.Fatalf("Expected both differences reported, got %d: %v", len(report.Unsupported), err)
	}

	kinds := make(map[core.DiffKind]bool)
	for _, uerr := range report.Unsupported {
		var diffErr *core.UnsupportedDiffError
		if !errors.As(uerr, &diffErr) {
			t.Fatalf("Expected an unsupported-diff error, got %v", uerr)
		}
		kinds[diffErr.Kind] = true
	}
	if !kinds[core.ChildAdded] || !kinds[core.AttributeAdded] {
		t.Errorf("Expected child_added and attribute_added, got %v", kinds)
	}

	if len(report.Attempted) != 0 {
		t.Errorf("Expected no uploads, got %v", report.Attempted)
	}
}
