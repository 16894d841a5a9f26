// Package fs projects note snapshots onto a local directory store and reads
// locally edited stores back into snapshots.
package fs

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/arbor/pkg/core"
)

// Store layout names. Everything below the workspace root is fixed so that
// projections and scans agree without negotiation.
const (
	// StoreDirName is the flat content store, one directory per note id.
	StoreDirName = "store"
	// HierarchyName is the workspace-root symlink to the root note's directory.
	HierarchyName = "hierarchy"
	// ContentBase prefixes the content file; the serialization extension follows.
	ContentBase = "content"
	// AttributesFile is the per-note attribute sidecar.
	AttributesFile = "attributes.yaml"
	// LinkPrefix marks a child link entry inside a note directory.
	LinkPrefix = "[link] "
)

// Store implements the filesystem half of synchronization: it projects a
// loaded snapshot onto a directory tree and reads a locally edited tree back
// into a snapshot.
type Store struct {
	Path   string
	config Config

	fingerprints *fingerprintCache

	mu            sync.RWMutex
	watcherActive bool
	lastScan      *time.Time
}

// Config holds the configuration for the filesystem store.
type Config struct {
	Path   string
	Logger *slog.Logger

	// CachePath, when set, persists content fingerprints between scans so
	// unchanged files are not rehashed.
	CachePath string
}

// NewStore creates a store rooted at the configured workspace directory.
func NewStore(config Config) *Store {
	cache := newFingerprintCache(config.CachePath)
	cache.load()

	return &Store{
		Path:         config.Path,
		config:       config,
		fingerprints: cache,
	}
}

// Dir returns the store directory under the workspace root.
func (s *Store) Dir() string {
	return filepath.Join(s.Path, StoreDirName)
}

// NoteDir returns the directory holding one note's entries.
func (s *Store) NoteDir(id string) string {
	return filepath.Join(s.Dir(), id)
}

// HierarchyPath returns the workspace-root hierarchy symlink path.
func (s *Store) HierarchyPath() string {
	return filepath.Join(s.Path, HierarchyName)
}

// Exists reports whether a projection is already present.
func (s *Store) Exists() bool {
	if _, err := os.Lstat(s.Dir()); err == nil {
		return true
	}
	if _, err := os.Lstat(s.HierarchyPath()); err == nil {
		return true
	}
	return false
}

// Initialize creates the store directory.
func (s *Store) Initialize() error {
	if err := os.MkdirAll(s.Dir(), 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	return nil
}

// Reset removes the current projection, local edits included.
func (s *Store) Reset() error {
	if err := os.RemoveAll(s.Dir()); err != nil {
		return fmt.Errorf("failed to remove %s: %w", s.Dir(), err)
	}
	if err := os.Remove(s.HierarchyPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", s.HierarchyPath(), err)
	}
	return nil
}

// WriteNote persists one note's directory: the attribute sidecar always, the
// content body only when the note carries one. Distinct ids may be written
// concurrently.
func (s *Store) WriteNote(id string, attrs []core.Attribute, extension string, content []byte) error {
	dir := s.NoteDir(id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create note directory: %w", err)
	}

	data, err := core.MarshalAttributes(attrs)
	if err != nil {
		return fmt.Errorf("note %s: %w", id, err)
	}
	if err := writeFileAtomic(filepath.Join(dir, AttributesFile), data, 0644); err != nil {
		return fmt.Errorf("note %s: %w", id, err)
	}

	if extension != "" {
		if err := writeFileAtomic(filepath.Join(dir, ContentBase+extension), content, 0644); err != nil {
			return fmt.Errorf("note %s: %w", id, err)
		}
	}

	if s.config.Logger != nil {
		s.config.Logger.Debug("wrote note", "id", id, "content", extension != "")
	}
	return nil
}

// WriteHierarchy materializes the tree shape: one relative "[link] <name>"
// symlink per edge inside the parent's directory, and the workspace-root
// hierarchy link pointing at the root note's directory.
func (s *Store) WriteHierarchy(root *core.Note) error {
	var linkErr error
	core.Walk(root, func(n *core.Note) {
		if linkErr != nil {
			return
		}
		for _, edge := range n.Children {
			link := filepath.Join(s.NoteDir(n.ID), LinkPrefix+edge.Name)
			if err := replaceSymlink(filepath.Join("..", edge.Child.ID), link); err != nil {
				linkErr = fmt.Errorf("note %s: %w", n.ID, err)
				return
			}
		}
	})
	if linkErr != nil {
		return linkErr
	}

	if err := replaceSymlink(filepath.Join(StoreDirName, root.ID), s.HierarchyPath()); err != nil {
		return fmt.Errorf("failed to link hierarchy root: %w", err)
	}

	if s.config.Logger != nil {
		s.config.Logger.Debug("wrote hierarchy", "root", root.ID)
	}
	return nil
}

// replaceSymlink links path at target, dropping whatever entry held the name
// before.
func replaceSymlink(target, path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	if err := os.Symlink(target, path); err != nil {
		return fmt.Errorf("failed to link %s: %w", path, err)
	}
	return nil
}

// ContentPath locates the note's content file.
func (s *Store) ContentPath(id string) (string, error) {
	dir := s.NoteDir(id)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &core.NotFoundError{NoteID: id, Path: dir}
		}
		return "", fmt.Errorf("failed to read note directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), ContentBase) {
			return filepath.Join(dir, entry.Name()), nil
		}
	}
	return "", &core.NotFoundError{NoteID: id, Path: filepath.Join(dir, ContentBase)}
}

// NoteContent reads the note's content body from the store.
func (s *Store) NoteContent(id string) ([]byte, error) {
	path, err := s.ContentPath(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// NoteIDForPath maps a path inside the store back to the enclosing note id.
// Only content files directly inside a top-level note directory qualify;
// anything nested deeper belongs to locally authored notes that have no
// remote identity yet.
func (s *Store) NoteIDForPath(path string) (string, bool) {
	rel, err := filepath.Rel(s.Dir(), path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}

	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) != 2 || !strings.HasPrefix(parts[1], ContentBase) {
		return "", false
	}
	return parts[0], true
}
