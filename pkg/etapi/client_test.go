package etapi_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/arbor/pkg/etapi"
)

func TestSession_Note(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "secret-token" {
			t.Errorf("expected the token in the Authorization header, got %q", r.Header.Get("Authorization"))
		}
		if r.URL.Path != "/ETAPI/notes/n1" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}

		io.WriteString(w, `{
			"noteId": "n1",
			"title": "First",
			"type": "text",
			"mime": "text/html",
			"parentNoteIds": ["root"],
			"childNoteIds": ["c1", "c2"],
			"childBranchIds": ["b1", "b2"],
			"attributes": [
				{"attributeId": "at1", "type": "label", "name": "archived", "value": "", "position": 10, "isInheritable": false}
			]
		}`)
	}))
	defer server.Close()

	session := etapi.NewSession(server.URL, "secret-token", nil)

	note, err := session.Note(context.Background(), "n1")
	if err != nil {
		t.Fatalf("Note failed: %v", err)
	}
	if note.NoteID != "n1" || note.Title != "First" || note.Mime != "text/html" {
		t.Errorf("unexpected note: %+v", note)
	}
	if len(note.ChildNoteIDs) != 2 || len(note.ChildBranchIDs) != 2 {
		t.Errorf("expected paired child lists, got %v / %v", note.ChildNoteIDs, note.ChildBranchIDs)
	}
	if len(note.Attributes) != 1 || note.Attributes[0].AttributeID != "at1" {
		t.Errorf("unexpected attributes: %+v", note.Attributes)
	}
}

func TestSession_Branch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ETAPI/branches/b1" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		io.WriteString(w, `{"branchId": "b1", "noteId": "c1", "parentNoteId": "n1", "prefix": "Ch 1"}`)
	}))
	defer server.Close()

	session := etapi.NewSession(server.URL, "secret-token", nil)

	branch, err := session.Branch(context.Background(), "b1")
	if err != nil {
		t.Fatalf("Branch failed: %v", err)
	}
	if branch.ParentNoteID != "n1" || branch.NoteID != "c1" || branch.Prefix != "Ch 1" {
		t.Errorf("unexpected branch: %+v", branch)
	}
}

func TestSession_ContentRoundTrip(t *testing.T) {
	var uploaded []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ETAPI/notes/n1/content/" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}

		switch r.Method {
		case http.MethodGet:
			io.WriteString(w, "<p>hello</p>")
		case http.MethodPut:
			if ct := r.Header.Get("Content-Type"); ct != "application/octet-stream" {
				t.Errorf("expected octet-stream upload, got %q", ct)
			}
			uploaded, _ = io.ReadAll(r.Body)
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	}))
	defer server.Close()

	session := etapi.NewSession(server.URL, "secret-token", nil)
	ctx := context.Background()

	content, err := session.NoteContent(ctx, "n1")
	if err != nil {
		t.Fatalf("NoteContent failed: %v", err)
	}
	if string(content) != "<p>hello</p>" {
		t.Errorf("unexpected content %q", content)
	}

	if err := session.PutNoteContent(ctx, "n1", []byte("<p>bye</p>")); err != nil {
		t.Fatalf("PutNoteContent failed: %v", err)
	}
	if string(uploaded) != "<p>bye</p>" {
		t.Errorf("unexpected upload %q", uploaded)
	}
}

func TestSession_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status": 404, "message": "note not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	session := etapi.NewSession(server.URL, "secret-token", nil)

	_, err := session.Note(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected an error for a 404 response")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("expected the status in the error, got %v", err)
	}
	if !strings.Contains(err.Error(), "notes/missing") {
		t.Errorf("expected the url in the error, got %v", err)
	}
}

func TestSession_BaseURLNormalization(t *testing.T) {
	session := etapi.NewSession("http://localhost:8080///", "tok", nil)

	if session.BaseURL != "http://localhost:8080/ETAPI/" {
		t.Errorf("unexpected base url %q", session.BaseURL)
	}
}
