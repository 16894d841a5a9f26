package core

import "fmt"

// ConsistencyError reports an edge/note cross-check mismatch while loading
// the remote tree. It is fatal and aborts the load.
type ConsistencyError struct {
	NoteID string
	Op     string
	Detail string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("note %s: %s: %s", e.NoteID, e.Op, e.Detail)
}

// StructuralError reports an unexpected entry found while scanning the local
// store. Scans collect every structural error across the full pass and
// report them together.
type StructuralError struct {
	Path   string
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("'%s': %s", e.Path, e.Reason)
}

// UnsupportedDiffError reports a difference kind that no activity can apply.
// It is fatal for that change only; other changes remain applicable.
type UnsupportedDiffError struct {
	NoteID string
	Kind   DiffKind
}

func (e *UnsupportedDiffError) Error() string {
	return fmt.Sprintf("note %s: applying a '%s' difference is not supported", e.NoteID, e.Kind)
}

// TransferError reports a failed content transfer. It is fatal for that
// change; independent transfers in the same apply phase still proceed.
type TransferError struct {
	NoteID string
	Op     string
	Err    error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("note %s: %s failed: %v", e.NoteID, e.Op, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// NotFoundError reports local content referenced by an activity that is
// missing at apply time.
type NotFoundError struct {
	NoteID string
	Path   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("note %s: '%s' does not exist", e.NoteID, e.Path)
}
