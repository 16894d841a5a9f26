package fs

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aretw0/arbor/pkg/core"
)

// localNote is the scan's working view of one note directory before the
// snapshot is assembled.
type localNote struct {
	id          string
	kind        string
	mime        string
	contentHash string
	attributes  []core.Attribute
	children    []localEdge
}

type localEdge struct {
	name    string
	childID string
}

// Scan reads the on-disk store back into a note snapshot. Locally authored
// directories receive temporary ids. Malformed entries are collected across
// the whole scan and reported together; a snapshot is only assembled from a
// clean scan.
func (s *Store) Scan() (*core.Note, error) {
	dir := s.Dir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &core.StructuralError{Path: dir, Reason: "store directory does not exist"}
		}
		return nil, fmt.Errorf("failed to read store directory: %w", err)
	}

	sc := &scan{
		lookup: make(map[string]*localNote),
		cache:  s.fingerprints,
		seen:   make(map[string]bool),
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			sc.fail(filepath.Join(dir, entry.Name()), "unexpected entry in the store directory")
			continue
		}
		sc.note(filepath.Join(dir, entry.Name()), entry.Name())
	}

	root, err := sc.assemble(dir)
	if err != nil {
		return nil, err
	}

	// Only a complete scan may prune: a failed one has not seen every file.
	sc.cache.prune(sc.seen)
	if err := sc.cache.save(); err != nil && s.config.Logger != nil {
		s.config.Logger.Debug("failed to persist fingerprint cache", "error", err)
	}

	s.recordScan()
	if s.config.Logger != nil {
		s.config.Logger.Debug("scanned store", "notes", len(sc.lookup), "root", root.ID)
	}
	return root, nil
}

type scan struct {
	lookup map[string]*localNote
	errs   []error

	cache *fingerprintCache
	seen  map[string]bool // cache keys encountered this scan
}

func (sc *scan) fail(path, reason string) {
	sc.errs = append(sc.errs, &core.StructuralError{Path: path, Reason: reason})
}

// note deserializes one note directory. A directory that fails to
// deserialize is recorded but never registered, so one malformed note does
// not poison the lookup.
func (sc *scan) note(path, id string) {
	entries, err := os.ReadDir(path)
	if err != nil {
		sc.fail(path, fmt.Sprintf("failed to read: %v", err))
		return
	}

	note := &localNote{id: id}
	ok := true

	for _, entry := range entries {
		entryPath := filepath.Join(path, entry.Name())

		switch {
		case entry.Name() == AttributesFile:
			data, err := os.ReadFile(entryPath)
			if err != nil {
				sc.fail(entryPath, fmt.Sprintf("failed to read: %v", err))
				ok = false
				continue
			}
			attrs, err := core.UnmarshalAttributes(data)
			if err != nil {
				sc.fail(entryPath, fmt.Sprintf("malformed attributes: %v", err))
				ok = false
				continue
			}
			note.attributes = attrs

		case entry.Type().IsRegular() && strings.HasPrefix(entry.Name(), ContentBase):
			mime := core.MimeForFilename(entry.Name())
			if mime == "" {
				sc.fail(entryPath, "unknown content extension")
				ok = false
				continue
			}
			hash, err := sc.fingerprint(entryPath, id+"/"+entry.Name(), entry)
			if err != nil {
				sc.fail(entryPath, fmt.Sprintf("failed to read: %v", err))
				ok = false
				continue
			}
			note.mime = mime
			note.kind = core.KindForMime(mime)
			note.contentHash = hash

		case entry.Type().IsRegular():
			sc.fail(entryPath, "unexpected file in a note directory")
			ok = false

		case !strings.HasPrefix(entry.Name(), LinkPrefix):
			sc.fail(entryPath, "unexpected entry in a note directory")
			ok = false

		case entry.Type()&os.ModeSymlink != 0:
			target, err := os.Readlink(entryPath)
			if err != nil {
				sc.fail(entryPath, fmt.Sprintf("failed to resolve link: %v", err))
				ok = false
				continue
			}
			childID := filepath.Base(target)
			if core.IsTemporaryID(childID) {
				sc.fail(entryPath, "links to a note that does not exist remotely")
				ok = false
				continue
			}
			note.children = append(note.children, localEdge{
				name:    strings.TrimPrefix(entry.Name(), LinkPrefix),
				childID: childID,
			})

		case entry.IsDir():
			// A real directory under a link name is a locally authored
			// note: it gets a temporary id until the remote assigns one.
			childID := core.NewTemporaryID()
			sc.note(entryPath, childID)
			note.children = append(note.children, localEdge{
				name:    strings.TrimPrefix(entry.Name(), LinkPrefix),
				childID: childID,
			})

		default:
			sc.fail(entryPath, "unexpected entry in a note directory")
			ok = false
		}
	}

	if ok {
		sc.lookup[note.id] = note
	}
}

// fingerprint hashes one content file, served from the cache when its
// modification time and size are unchanged.
func (sc *scan) fingerprint(path, key string, entry os.DirEntry) (string, error) {
	sc.seen[key] = true

	info, err := entry.Info()
	if err != nil {
		return "", err
	}
	if hash, ok := sc.cache.get(key, info.ModTime(), info.Size()); ok {
		return hash, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	hash := core.HashContent(data)
	sc.cache.set(key, info.ModTime(), info.Size(), hash)
	return hash, nil
}

// assemble cross-checks the lookup and builds the snapshot bottom-up.
func (sc *scan) assemble(dir string) (*core.Note, error) {
	ids := slices.Sorted(maps.Keys(sc.lookup))

	// Dangling links are only findable once every directory was visited.
	for _, id := range ids {
		for _, edge := range sc.lookup[id].children {
			if _, ok := sc.lookup[edge.childID]; !ok {
				sc.fail(filepath.Join(dir, id, LinkPrefix+edge.name), "links to an unknown note")
			}
		}
	}

	if len(sc.errs) > 0 {
		return nil, errors.Join(sc.errs...)
	}

	parents := make(map[string][]string, len(sc.lookup))
	for _, id := range ids {
		for _, edge := range sc.lookup[id].children {
			parents[edge.childID] = append(parents[edge.childID], id)
		}
	}

	var roots []string
	for _, id := range ids {
		if len(parents[id]) == 0 {
			roots = append(roots, id)
		}
	}
	if len(roots) != 1 {
		switch {
		case len(sc.lookup) == 0:
			return nil, &core.StructuralError{Path: dir, Reason: "the store is empty"}
		case len(roots) == 0:
			return nil, &core.StructuralError{Path: dir, Reason: "no parentless note to serve as the root"}
		default:
			return nil, &core.StructuralError{Path: dir, Reason: "more than one root: " + strings.Join(roots, ", ")}
		}
	}

	built := make(map[string]*core.Note, len(sc.lookup))
	var build func(id string) *core.Note
	build = func(id string) *core.Note {
		if note, ok := built[id]; ok {
			return note
		}

		local := sc.lookup[id]
		note := &core.Note{
			ID:          id,
			Kind:        local.kind,
			Mime:        local.mime,
			ParentIDs:   parents[id],
			Attributes:  local.attributes,
			ContentHash: local.contentHash,
		}
		built[id] = note

		for _, edge := range local.children {
			note.Children = append(note.Children, core.Edge{Name: edge.name, Child: build(edge.childID)})
		}
		return note
	}
	return build(roots[0]), nil
}
