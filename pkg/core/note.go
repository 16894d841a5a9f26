package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// Note is the central entity of the domain: one node of the synchronized
// DAG. A snapshot is built once, either from the remote store or from the
// local mirror, and is never mutated afterwards; the diff engine only reads
// it.
type Note struct {
	ID string

	// Kind is the content kind ("text", "code"). Empty for purely
	// structural notes that carry no body.
	Kind string

	// Mime is the content-format tag. It selects the serialization
	// extension for the content body.
	Mime string

	// ParentIDs is a set, not a sequence. A note may hang under several
	// parents; the root of a snapshot is the one note with none.
	ParentIDs []string

	// Attributes in remote position order.
	Attributes []Attribute

	// ContentHash is the SHA-256 hex fingerprint of the content body.
	// Present iff the note carries a content body.
	ContentHash string

	// Children are the outgoing edges in link order. Link names are unique
	// within one note; the same child may appear under other notes with a
	// different name.
	Children []Edge
}

// Edge is a named link from a note to one of its children.
type Edge struct {
	Name  string
	Child *Note
}

// Child returns the child linked under the given name.
func (n *Note) Child(name string) (*Note, bool) {
	for _, e := range n.Children {
		if e.Name == name {
			return e.Child, true
		}
	}
	return nil, false
}

// ContentType returns the note's mime when the note carries a content body,
// and "" for structural notes and bodies the mirror does not materialize.
func (n *Note) ContentType() string {
	if ContentExtension(n.Kind, n.Mime) == "" {
		return ""
	}
	return n.Mime
}

// Walk visits every note reachable from root exactly once, a note always
// before its children. Notes reachable through more than one edge are
// visited on the first encounter only.
func Walk(root *Note, visit func(*Note)) {
	seen := make(map[string]bool)

	var walk func(*Note)
	walk = func(n *Note) {
		if seen[n.ID] {
			return
		}
		seen[n.ID] = true

		visit(n)

		for _, e := range n.Children {
			walk(e.Child)
		}
	}

	walk(root)
}

const temporaryIDMark = "__"

// NewTemporaryID returns a synthetic identity for content that has not been
// reconciled with the remote authority yet.
func NewTemporaryID() string {
	return temporaryIDMark + strings.ReplaceAll(uuid.NewString(), "-", "") + temporaryIDMark
}

// IsTemporaryID reports whether id was produced by NewTemporaryID.
func IsTemporaryID(id string) bool {
	return strings.HasPrefix(id, temporaryIDMark) && strings.HasSuffix(id, temporaryIDMark) && len(id) >= 5
}

// HashContent fingerprints a content body.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
