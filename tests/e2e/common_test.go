package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aretw0/arbor/pkg/etapi"
)

// buildArborBinary builds the arbor binary in the specified directory and
// returns its path. The build cache makes repeat builds cheap.
func buildArborBinary(t *testing.T, dir string) string {
	t.Helper()

	bin := filepath.Join(dir, "arbor")
	buildCmd := exec.Command("go", "build", "-o", bin, "../../cmd/arbor")
	if out, err := buildCmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build arbor: %v\n%s", err, string(out))
	}
	return bin
}

// run executes a command in dir and fails the test when it does.
func run(t *testing.T, dir string, name string, args ...string) string {
	t.Helper()

	out, err := tryRun(t, dir, name, args...)
	if err != nil {
		t.Fatalf("Command %s %v failed in %s: %v\n%s", name, args, dir, err, out)
	}
	return out
}

// tryRun executes a command in dir and returns its combined output.
func tryRun(t *testing.T, dir string, name string, args ...string) (string, error) {
	t.Helper()

	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	t.Logf("[%s] %s %v\n%s", dir, name, args, out)
	return string(out), err
}

// noteServer fakes the note store wire API for CLI runs. Requests without a
// token are rejected like the real server does.
type noteServer struct {
	*httptest.Server

	mu       sync.Mutex
	notes    map[string]etapi.Note
	branches map[string]etapi.Branch
	contents map[string][]byte
	uploads  map[string][]byte
	auth     string
}

// newNoteServer serves a small book for the duration of the test: a text
// page, a JSON snippet behind a prefixed branch, and an excluded subtree.
func newNoteServer(t *testing.T) *noteServer {
	t.Helper()

	s := &noteServer{
		notes:    make(map[string]etapi.Note),
		branches: make(map[string]etapi.Branch),
		contents: make(map[string][]byte),
		uploads:  make(map[string][]byte),
	}
	s.addNote("root", "My Book", "book", "", nil)
	s.addNote("page", "Page", "text", "text/html", []byte("<p>page</p>"))
	s.addNote("data", "Data", "code", "application/json", []byte("{}"))
	s.addNote("private", "Private", "book", "", nil,
		etapi.Attribute{AttributeID: "p1", Type: "label", Name: "arborNoSync"})
	s.link("root", "page", "")
	s.link("root", "data", "Ch 1")
	s.link("root", "private", "")

	s.Server = httptest.NewServer(s)
	t.Cleanup(s.Close)
	return s
}

func (s *noteServer) addNote(id, title, kind, mime string, content []byte, attrs ...etapi.Attribute) {
	s.notes[id] = etapi.Note{NoteID: id, Title: title, Type: kind, Mime: mime, Attributes: attrs}
	if content != nil {
		s.contents[id] = content
	}
}

func (s *noteServer) link(parentID, childID, prefix string) {
	branchID := "b_" + parentID + "_" + childID
	s.branches[branchID] = etapi.Branch{BranchID: branchID, NoteID: childID, ParentNoteID: parentID, Prefix: prefix}

	parent := s.notes[parentID]
	parent.ChildNoteIDs = append(parent.ChildNoteIDs, childID)
	parent.ChildBranchIDs = append(parent.ChildBranchIDs, branchID)
	s.notes[parentID] = parent

	child := s.notes[childID]
	child.ParentNoteIDs = append(child.ParentNoteIDs, parentID)
	s.notes[childID] = child
}

func (s *noteServer) setContent(id string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contents[id] = content
}

func (s *noteServer) uploaded(id string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.uploads[id]
	return content, ok
}

func (s *noteServer) lastToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auth
}

func (s *noteServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path, ok := strings.CutPrefix(r.URL.Path, "/ETAPI/")
	if !ok {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.auth = r.Header.Get("Authorization")
	if s.auth == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	switch {
	case strings.HasPrefix(path, "notes/") && strings.HasSuffix(path, "/content/"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "notes/"), "/content/")
		if r.Method == http.MethodPut {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			s.uploads[id] = body
			s.contents[id] = body
			w.WriteHeader(http.StatusNoContent)
			return
		}
		content, ok := s.contents[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(content)
	case strings.HasPrefix(path, "notes/"):
		note, ok := s.notes[strings.TrimPrefix(path, "notes/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(note)
	case strings.HasPrefix(path, "branches/"):
		branch, ok := s.branches[strings.TrimPrefix(path, "branches/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(branch)
	default:
		http.NotFound(w, r)
	}
}

// setupCLI builds the binary and configures a fresh workspace against a
// fresh server, with the token stored.
func setupCLI(t *testing.T) (bin, ws string, srv *noteServer) {
	t.Helper()

	tmp := t.TempDir()
	srv = newNoteServer(t)
	bin = buildArborBinary(t, tmp)

	ws = filepath.Join(tmp, "workspace")
	if err := os.Mkdir(ws, 0755); err != nil {
		t.Fatal(err)
	}
	run(t, ws, bin, "init", srv.URL)
	run(t, ws, bin, "set-token", "cli-token")
	return bin, ws, srv
}
