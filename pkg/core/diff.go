package core

import (
	"fmt"
	"slices"
)

// DiffKind tags one category of difference between two snapshots.
type DiffKind string

const (
	ContentTypeChanged DiffKind = "content_type_changed"
	ContentChanged     DiffKind = "content_changed"
	ParentAdded        DiffKind = "parent_id_added"
	ParentRemoved      DiffKind = "parent_id_removed"
	AttributeAdded     DiffKind = "attribute_added"
	AttributeChanged   DiffKind = "attribute_changed"
	AttributeRemoved   DiffKind = "attribute_removed"
	ChildAdded         DiffKind = "child_added"
	ChildRemoved       DiffKind = "child_removed"

	// ChildLinkChanged is reserved for a same-id child relinked under a new
	// name. The matching rule folds renames into the matched pair instead,
	// so it is never emitted today.
	ChildLinkChanged DiffKind = "child_link_changed"
)

// Diff is one difference between a reference snapshot and an actual
// snapshot. Kind selects the payload: ParentID for parent events, Attribute
// for attribute events, LinkName and Child for child events. Reference and
// Actual are the matched pair of notes under comparison.
type Diff struct {
	Kind      DiffKind
	Reference *Note
	Actual    *Note

	ParentID  string
	Attribute Attribute
	LinkName  string
	Child     *Note
}

func (d Diff) String() string {
	switch d.Kind {
	case ContentTypeChanged:
		return fmt.Sprintf("[%s] Content type changed", d.Actual.ID)
	case ContentChanged:
		return fmt.Sprintf("[%s] Content changed", d.Actual.ID)
	case ParentAdded:
		return fmt.Sprintf("[%s] Parent '%s' was added", d.Actual.ID, d.ParentID)
	case ParentRemoved:
		return fmt.Sprintf("[%s] Parent '%s' was removed", d.Actual.ID, d.ParentID)
	case AttributeAdded:
		return fmt.Sprintf("[%s] Attribute '%s' was added", d.Actual.ID, d.Attribute.ID)
	case AttributeChanged:
		return fmt.Sprintf("[%s] Attribute '%s' changed", d.Actual.ID, d.Attribute.ID)
	case AttributeRemoved:
		return fmt.Sprintf("[%s] Attribute '%s' was removed", d.Actual.ID, d.Attribute.ID)
	case ChildAdded:
		return fmt.Sprintf("[%s] Child linked as '%s' was added", d.Actual.ID, d.LinkName)
	case ChildRemoved:
		return fmt.Sprintf("[%s] Child linked as '%s' was removed", d.Actual.ID, d.LinkName)
	case ChildLinkChanged:
		return fmt.Sprintf("[%s] Child '%s' was relinked as '%s'", d.Actual.ID, d.Child.ID, d.LinkName)
	}
	return fmt.Sprintf("[%s] Unknown difference '%s'", d.Actual.ID, string(d.Kind))
}

// Compare walks two snapshots from their roots and returns the differences
// between them, a note's own differences always before its children's.
// Reference is the last-synced state, actual the current one.
//
// Both snapshots are only read. Compare itself never fails; failures arise
// later, when a difference is resolved into an activity.
func Compare(reference, actual *Note) []Diff {
	c := &comparison{seen: make(map[string]bool)}
	c.compare(reference, actual)
	return c.diffs
}

type comparison struct {
	seen  map[string]bool
	diffs []Diff
}

func (c *comparison) compare(reference, actual *Note) {
	// A pair reached through more than one edge is processed once.
	if c.seen[reference.ID] {
		return
	}
	c.seen[reference.ID] = true

	// A content-type change supersedes the fingerprint comparison. Notes
	// whose actual side carries no body are not compared at all.
	if actualType := actual.ContentType(); actualType != "" {
		if actualType != reference.ContentType() {
			c.diffs = append(c.diffs, Diff{Kind: ContentTypeChanged, Reference: reference, Actual: actual})
		} else if actual.ContentHash != reference.ContentHash {
			c.diffs = append(c.diffs, Diff{Kind: ContentChanged, Reference: reference, Actual: actual})
		}
	}

	added, removed := diffIDSets(actual.ParentIDs, reference.ParentIDs)
	for _, id := range added {
		c.diffs = append(c.diffs, Diff{Kind: ParentAdded, Reference: reference, Actual: actual, ParentID: id})
	}
	for _, id := range removed {
		c.diffs = append(c.diffs, Diff{Kind: ParentRemoved, Reference: reference, Actual: actual, ParentID: id})
	}

	refAttrs := make(map[string]Attribute, len(reference.Attributes))
	for _, attr := range reference.Attributes {
		refAttrs[attr.ID] = attr
	}
	actAttrs := make(map[string]bool, len(actual.Attributes))
	for _, attr := range actual.Attributes {
		actAttrs[attr.ID] = true

		refAttr, ok := refAttrs[attr.ID]
		if !ok {
			c.diffs = append(c.diffs, Diff{Kind: AttributeAdded, Reference: reference, Actual: actual, Attribute: attr})
			continue
		}
		if attr != refAttr {
			c.diffs = append(c.diffs, Diff{Kind: AttributeChanged, Reference: reference, Actual: actual, Attribute: attr})
		}
	}
	for _, attr := range reference.Attributes {
		if !actAttrs[attr.ID] {
			c.diffs = append(c.diffs, Diff{Kind: AttributeRemoved, Reference: reference, Actual: actual, Attribute: attr})
		}
	}

	// Child edges match by link name first, then by child id, so a same-id
	// child under a new name still pairs up. Matched pairs are queued and
	// recursed only after every difference of this note is out.
	matchedRefLinks := make(map[string]bool)
	var pairs [][2]*Note

	for _, edge := range actual.Children {
		refChild, refLink, ok := matchChild(reference, edge)
		if !ok {
			c.diffs = append(c.diffs, Diff{Kind: ChildAdded, Reference: reference, Actual: actual, LinkName: edge.Name, Child: edge.Child})
			continue
		}

		matchedRefLinks[refLink] = true
		pairs = append(pairs, [2]*Note{refChild, edge.Child})
	}

	for _, edge := range reference.Children {
		if !matchedRefLinks[edge.Name] {
			c.diffs = append(c.diffs, Diff{Kind: ChildRemoved, Reference: reference, Actual: actual, LinkName: edge.Name, Child: edge.Child})
		}
	}

	for _, pair := range pairs {
		c.compare(pair[0], pair[1])
	}
}

func matchChild(reference *Note, edge Edge) (*Note, string, bool) {
	if child, ok := reference.Child(edge.Name); ok {
		return child, edge.Name, true
	}
	for _, re := range reference.Children {
		if re.Child.ID == edge.Child.ID {
			return re.Child, re.Name, true
		}
	}
	return nil, "", false
}

// diffIDSets returns the ids only in actual and the ids only in reference,
// each sorted lexicographically so output order is stable.
func diffIDSets(actual, reference []string) (added, removed []string) {
	act := make(map[string]bool, len(actual))
	for _, id := range actual {
		act[id] = true
	}
	ref := make(map[string]bool, len(reference))
	for _, id := range reference {
		ref[id] = true
	}

	for id := range act {
		if !ref[id] {
			added = append(added, id)
		}
	}
	for id := range ref {
		if !act[id] {
			removed = append(removed, id)
		}
	}

	slices.Sort(added)
	slices.Sort(removed)
	return added, removed
}
