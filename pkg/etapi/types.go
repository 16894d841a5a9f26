package etapi

// Note is the wire representation of a note record.
// ChildNoteIDs and ChildBranchIDs are positionally paired: the branch at
// index i carries the edge to the child at index i.
type Note struct {
	NoteID         string      `json:"noteId"`
	Title          string      `json:"title"`
	Type           string      `json:"type"`
	Mime           string      `json:"mime"`
	DateCreated    string      `json:"dateCreated"`
	DateModified   string      `json:"dateModified"`
	ParentNoteIDs  []string    `json:"parentNoteIds"`
	ChildNoteIDs   []string    `json:"childNoteIds"`
	ChildBranchIDs []string    `json:"childBranchIds"`
	Attributes     []Attribute `json:"attributes"`
}

// Branch is the wire representation of one parent-child edge.
type Branch struct {
	BranchID     string `json:"branchId"`
	NoteID       string `json:"noteId"`
	ParentNoteID string `json:"parentNoteId"`
	Prefix       string `json:"prefix"`
}

// Attribute is the wire representation of one note attribute.
type Attribute struct {
	AttributeID   string `json:"attributeId"`
	Type          string `json:"type"`
	Name          string `json:"name"`
	Value         string `json:"value"`
	Position      int    `json:"position"`
	IsInheritable bool   `json:"isInheritable"`
}
