package core

import "strings"

// Serialization extensions by content-format tag. Only these formats carry
// a content body; extension matching follows this fixed order.
var mimeExtensions = []struct {
	Mime      string
	Extension string
}{
	{"text/css", ".css"},
	{"text/html", ".html"},
	{"application/json", ".json"},
	{"application/javascript;env=backend", ".backend.js"},
	{"application/javascript;env=frontend", ".frontend.js"},
}

// ExtensionForMime returns the content file extension for a content-format
// tag, or "" when the format carries no body.
func ExtensionForMime(mime string) string {
	for _, m := range mimeExtensions {
		if m.Mime == mime {
			return m.Extension
		}
	}
	return ""
}

// MimeForFilename returns the content-format tag implied by a content file
// name, or "" when the extension is not recognized.
func MimeForFilename(name string) string {
	for _, m := range mimeExtensions {
		if strings.HasSuffix(name, m.Extension) {
			return m.Mime
		}
	}
	return ""
}

// KindForMime returns the content kind implied by a content-format tag:
// "text" for HTML, "code" for the other recognized formats, "" otherwise.
func KindForMime(mime string) string {
	if mime == "text/html" {
		return "text"
	}
	if ExtensionForMime(mime) != "" {
		return "code"
	}
	return ""
}

// ContentExtension returns the content file extension for a note of the
// given kind and format, or "" when such a note carries no body.
func ContentExtension(kind, mime string) string {
	if kind != "code" && kind != "text" {
		return ""
	}
	return ExtensionForMime(mime)
}
