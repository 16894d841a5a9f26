// Package remote builds in-memory snapshots of a subtree held by the remote
// note store. It walks the tree-fetching protocol, deduplicates fan-in,
// cross-checks every edge, extracts content on a bounded pool and assembles
// the immutable snapshot bottom-up.
package remote

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/arbor/pkg/core"
	"github.com/aretw0/arbor/pkg/etapi"
)

// NoSyncLabel is the reserved, case-sensitive label name that excludes a
// note and its whole subtree from synchronization.
const NoSyncLabel = "arborNoSync"

// Fetcher is the remote capability the loader consumes.
// *etapi.Session satisfies it.
type Fetcher interface {
	Note(ctx context.Context, id string) (etapi.Note, error)
	Branch(ctx context.Context, id string) (etapi.Branch, error)
	NoteContent(ctx context.Context, id string) ([]byte, error)
}

// Item is the flat view of one loaded note handed to a Sink, decoupled from
// the tree shape so persistence can run while the shape is still being
// organized. Content is nil for notes that carry no body.
type Item struct {
	ID         string
	Attributes []core.Attribute
	Extension  string
	Content    []byte
}

// Sink receives every loaded note exactly once. Calls arrive concurrently
// from the extraction pool; implementations must not assume any order.
type Sink func(item Item) error

// Loader builds core snapshots from the remote store.
type Loader struct {
	Fetcher Fetcher
	Logger  *slog.Logger

	// Workers bounds the content extraction pool. Zero means one worker
	// per available CPU.
	Workers int
}

// Result is a loaded snapshot plus the non-fatal notices recorded while
// building it.
type Result struct {
	Root *core.Note

	// Skipped describes subtrees excluded by the no-sync label.
	Skipped []string
}

// Load fetches the subtree rooted at rootID, streams every note through
// sink, and returns the assembled snapshot. The sink may be nil.
func (l *Loader) Load(ctx context.Context, rootID string, sink Sink) (*Result, error) {
	if sink == nil {
		sink = func(Item) error { return nil }
	}

	b := &builder{
		fetcher:  l.Fetcher,
		logger:   l.Logger,
		notes:    make(map[string]*workingNote),
		excluded: make(map[string]bool),
	}

	if err := b.walk(ctx, rootID); err != nil {
		return nil, err
	}
	if err := b.extract(ctx, l.workers(), sink); err != nil {
		return nil, err
	}
	b.organize()

	root, ok := b.notes[rootID]
	if !ok {
		return nil, &core.ConsistencyError{NoteID: rootID, Op: "load root", Detail: "note was not reachable (missing, or excluded from synchronization)"}
	}

	b.built = make(map[string]*core.Note, len(b.notes))
	return &Result{Root: b.build(root), Skipped: b.skipped}, nil
}

func (l *Loader) workers() int {
	if l.Workers > 0 {
		return l.Workers
	}
	return runtime.NumCPU()
}

// builder owns the in-progress id lookup for the duration of one load and
// is discarded on completion.
type builder struct {
	fetcher Fetcher
	logger  *slog.Logger

	notes    map[string]*workingNote
	order    []string // ids in encounter order, for deterministic assembly
	excluded map[string]bool
	skipped  []string

	built map[string]*core.Note
}

type workingNote struct {
	id         string
	title      string
	kind       string
	mime       string
	parentIDs  []string
	attributes []core.Attribute
	extension  string

	// contentHash is this note's write-once slot during extraction.
	contentHash string

	children  []workingEdge
	linkNames map[string]string // child id -> final link name, memoized

	exportedNames map[string]bool
	exportedOrder []exportedEdge
}

type workingEdge struct {
	prefix string
	child  *workingNote
}

type exportedEdge struct {
	name  string
	child *workingNote
}

// frontierItem is one pending traversal step: the note to visit and the
// edge it was discovered through. The root carries no edge.
type frontierItem struct {
	parent   *workingNote
	branchID string
	noteID   string
}

// walk expands the frontier depth-first until every reachable note has been
// fetched exactly once and every traversed edge has been cross-checked.
func (b *builder) walk(ctx context.Context, rootID string) error {
	frontier := []frontierItem{{noteID: rootID}}

	for len(frontier) > 0 {
		item := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]

		if b.excluded[item.noteID] {
			continue
		}

		// Fan-in: the note is already loaded, only the new edge is recorded.
		if existing, ok := b.notes[item.noteID]; ok {
			if err := b.addEdge(ctx, item, existing); err != nil {
				return err
			}
			continue
		}

		response, err := b.fetcher.Note(ctx, item.noteID)
		if err != nil {
			return fmt.Errorf("failed to fetch note %s: %w", item.noteID, err)
		}

		attrs := convertAttributes(response.Attributes)

		if hasNoSync(attrs) {
			b.excluded[item.noteID] = true
			b.skipped = append(b.skipped, fmt.Sprintf("'%s' (%s) is excluded from synchronization", response.Title, response.NoteID))
			if b.logger != nil {
				b.logger.Debug("note excluded by label", "id", response.NoteID, "label", NoSyncLabel)
			}
			continue
		}

		note := newWorkingNote(response, attrs)
		b.notes[note.id] = note
		b.order = append(b.order, note.id)

		if err := b.addEdge(ctx, item, note); err != nil {
			return err
		}

		if len(response.ChildBranchIDs) != len(response.ChildNoteIDs) {
			return &core.ConsistencyError{
				NoteID: note.id,
				Op:     "pair child lists",
				Detail: fmt.Sprintf("%d child ids against %d branch ids", len(response.ChildNoteIDs), len(response.ChildBranchIDs)),
			}
		}
		for i := range response.ChildNoteIDs {
			frontier = append(frontier, frontierItem{
				parent:   note,
				branchID: response.ChildBranchIDs[i],
				noteID:   response.ChildNoteIDs[i],
			})
		}
	}

	return nil
}

// addEdge fetches the branch record for one traversed edge, asserts that
// its declared ids match the notes already known, and registers the edge on
// the parent.
func (b *builder) addEdge(ctx context.Context, item frontierItem, child *workingNote) error {
	if item.parent == nil {
		return nil
	}

	branch, err := b.fetcher.Branch(ctx, item.branchID)
	if err != nil {
		return fmt.Errorf("failed to fetch branch %s: %w", item.branchID, err)
	}
	if branch.ParentNoteID != item.parent.id {
		return &core.ConsistencyError{
			NoteID: child.id,
			Op:     "cross-check branch " + item.branchID,
			Detail: fmt.Sprintf("declared parent %q does not match %q", branch.ParentNoteID, item.parent.id),
		}
	}
	if branch.NoteID != child.id {
		return &core.ConsistencyError{
			NoteID: child.id,
			Op:     "cross-check branch " + item.branchID,
			Detail: fmt.Sprintf("declared note %q does not match %q", branch.NoteID, child.id),
		}
	}

	item.parent.children = append(item.parent.children, workingEdge{prefix: branch.Prefix, child: child})
	return nil
}

// extract downloads every content body on a bounded pool, fingerprints it
// and streams each note through the sink. Tasks are independent; the first
// failure cancels the rest and fails the load.
func (b *builder) extract(ctx context.Context, workers int, sink Sink) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, id := range b.order {
		note := b.notes[id]

		g.Go(func() error {
			item := Item{ID: note.id, Attributes: note.attributes, Extension: note.extension}

			if note.extension != "" {
				content, err := b.fetcher.NoteContent(ctx, note.id)
				if err != nil {
					return fmt.Errorf("failed to fetch content of note %s: %w", note.id, err)
				}
				note.contentHash = core.HashContent(content)
				item.Content = content
			}

			return sink(item)
		})
	}

	return g.Wait()
}

// organize computes final link names and canonicalizes fan-in: each child
// becomes exported under each of its loaded parents at most once, and a new
// export propagates exported status to the parent's own parents.
func (b *builder) organize() {
	for _, id := range b.order {
		b.export(b.notes[id])
	}
}

func (b *builder) export(note *workingNote) {
	for _, parentID := range note.parentIDs {
		parent, ok := b.notes[parentID]
		if !ok {
			// Parents outside the loaded subtree anchor nothing here.
			continue
		}

		name := b.linkName(parent, note.id)

		if parent.exportedNames == nil {
			parent.exportedNames = make(map[string]bool)
		}
		if parent.exportedNames[name] {
			continue
		}
		parent.exportedNames[name] = true
		parent.exportedOrder = append(parent.exportedOrder, exportedEdge{name: name, child: note})

		b.export(parent)
	}
}

// linkName returns the final, unique link name of a child within parent.
// Candidate names combine the edge prefix and the child title; duplicates
// are suffixed " (1)", " (2)", ... in encounter order. Names are scrubbed
// before deduplication so scrubbing cannot reintroduce a collision.
func (b *builder) linkName(parent *workingNote, childID string) string {
	if parent.linkNames == nil {
		counts := make(map[string]int, len(parent.children))
		parent.linkNames = make(map[string]string, len(parent.children))

		for _, edge := range parent.children {
			name := edge.child.title
			if edge.prefix != "" {
				name = edge.prefix + " - " + edge.child.title
			}
			name = scrubLinkName(name)

			if n, ok := counts[name]; ok {
				counts[name] = n + 1
				name = fmt.Sprintf("%s (%d)", name, n)
			} else {
				counts[name] = 1
			}

			parent.linkNames[edge.child.id] = name
		}
	}

	return parent.linkNames[childID]
}

// build assembles the immutable snapshot bottom-up, memoized by id so a
// fan-in child is one shared instance, never a duplicate.
func (b *builder) build(note *workingNote) *core.Note {
	if built, ok := b.built[note.id]; ok {
		return built
	}

	// Parents outside the loaded subtree are dropped: within one snapshot
	// the root must be the only parentless note.
	var parentIDs []string
	for _, id := range note.parentIDs {
		if _, ok := b.notes[id]; ok {
			parentIDs = append(parentIDs, id)
		}
	}

	result := &core.Note{
		ID:          note.id,
		Kind:        note.kind,
		Mime:        note.mime,
		ParentIDs:   parentIDs,
		Attributes:  note.attributes,
		ContentHash: note.contentHash,
	}
	b.built[note.id] = result

	for _, edge := range note.exportedOrder {
		result.Children = append(result.Children, core.Edge{Name: edge.name, Child: b.build(edge.child)})
	}

	return result
}

func newWorkingNote(response etapi.Note, attrs []core.Attribute) *workingNote {
	return &workingNote{
		id:         response.NoteID,
		title:      response.Title,
		kind:       response.Type,
		mime:       response.Mime,
		parentIDs:  response.ParentNoteIDs,
		attributes: attrs,
		extension:  core.ContentExtension(response.Type, response.Mime),
	}
}

func convertAttributes(attrs []etapi.Attribute) []core.Attribute {
	out := make([]core.Attribute, len(attrs))
	for i, a := range attrs {
		out[i] = core.Attribute{
			ID:          a.AttributeID,
			Kind:        a.Type,
			Name:        a.Name,
			Value:       a.Value,
			Position:    a.Position,
			Inheritable: a.IsInheritable,
		}
	}
	slices.SortStableFunc(out, func(a, b core.Attribute) int {
		return a.Position - b.Position
	})
	return out
}

func hasNoSync(attrs []core.Attribute) bool {
	for _, a := range attrs {
		if a.IsLabel(NoSyncLabel) {
			return true
		}
	}
	return false
}

// scrubLinkName replaces characters that cannot appear in a directory name.
func scrubLinkName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return '_'
		}
		return r
	}, name)
}
