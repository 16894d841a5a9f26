// Package arbor is the Composition Root for the Arbor application.
//
// It connects the synchronization logic (Domain Layer) with the transport
// and storage adapters (Infrastructure Layer) using the Hexagonal
// Architecture pattern.
//
// Philosophy:
//
// Arbor treats a remote hierarchical note store as the source of truth and
// your filesystem as an editable projection of it. The remote shape is a
// graph (a note may hang under several parents); the projection flattens it
// into one directory per note plus symlinks for the hierarchy, so ordinary
// editors and build tools can work on the content without understanding the
// graph.
//
// Features:
//
//   - **Pull**: mirror a remote subtree into a flat local store plus a
//     navigable symlink hierarchy.
//   - **Diff**: structural and content comparison between the remote
//     reference and the local projection, with optional unified patches.
//   - **Push**: upload edited content back, reporting every difference the
//     remote cannot absorb without blocking the ones it can.
//   - **Monitor**: watch the store and push settled edits live, with an
//     optional refresh ping for connected clients.
//   - **Concurrent transfers**: bounded worker pools for extraction and
//     upload.
//
// Usage:
//
//	// Configure a workspace and mirror the remote subtree
//	err := arbor.Init(ctx, ".", "http://localhost:8080",
//		arbor.WithPull(true),
//	)
//
//	// Later: inspect local edits and push them back
//	report, err := arbor.Push(ctx, ".")
package arbor
