package arbor

import (
	"context"
	"log/slog"

	"github.com/aretw0/arbor/internal/platform"
)

// Version exposes the version of the library.
// See version.go for the implementation using go:embed.

// --- Types ---

// PullReport is a public alias for the pull summary.
type PullReport = platform.PullReport

// DiffReport is a public alias for the diff summary.
type DiffReport = platform.DiffReport

// DiffEntry is a public alias for one reported difference.
type DiffEntry = platform.DiffEntry

// PushReport is a public alias for the push summary.
type PushReport = platform.PushReport

// --- Configuration ---

// Option defines a functional option for configuring Arbor.
type Option = platform.Option

// WithLogger sets the logger for all operations.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithToken passes the API token explicitly, overriding the environment and
// the stored token file.
func WithToken(token string) Option {
	return platform.WithToken(token)
}

// WithOverwrite allows operations to replace existing state (an existing
// configuration on init, an existing projection on pull).
func WithOverwrite(overwrite bool) Option {
	return platform.WithOverwrite(overwrite)
}

// WithWorkers bounds the concurrent transfer pool. Zero means one worker per
// available CPU.
func WithWorkers(n int) Option {
	return platform.WithWorkers(n)
}

// WithContentDiff enables unified content patches in diff reports.
func WithContentDiff(enabled bool) Option {
	return platform.WithContentDiff(enabled)
}

// WithRootNoteID selects the remote subtree to mirror (default "root").
func WithRootNoteID(id string) Option {
	return platform.WithRootNoteID(id)
}

// WithPull makes Init pull the configured subtree right away.
func WithPull(pull bool) Option {
	return platform.WithPull(pull)
}

// WithIgnores sets glob patterns for store paths the monitor leaves alone.
func WithIgnores(patterns []string) Option {
	return platform.WithIgnores(patterns)
}

// WithRefreshURL sets the endpoint poked after each monitored push.
func WithRefreshURL(url string) Option {
	return platform.WithRefreshURL(url)
}

// WithRefreshPort derives the refresh endpoint from a local port. Ignored
// when an explicit URL is set.
func WithRefreshPort(port int) Option {
	return platform.WithRefreshPort(port)
}

// --- Operations ---

// Init writes a workspace configuration in dir.
func Init(ctx context.Context, dir, serverURL string, opts ...Option) error {
	return platform.Init(ctx, dir, serverURL, opts...)
}

// SetToken stores the API token for the workspace upwards of dir.
func SetToken(dir, token string) error {
	return platform.SetToken(dir, token)
}

// Pull projects the configured remote subtree onto the local store.
func Pull(ctx context.Context, dir string, opts ...Option) (*PullReport, error) {
	return platform.Pull(ctx, dir, opts...)
}

// Diff compares the remote subtree against the local store.
func Diff(ctx context.Context, dir string, opts ...Option) (*DiffReport, error) {
	return platform.Diff(ctx, dir, opts...)
}

// Push applies local differences to the remote store.
func Push(ctx context.Context, dir string, opts ...Option) (*PushReport, error) {
	return platform.Push(ctx, dir, opts...)
}

// Monitor watches the local store and pushes settled content edits until ctx
// is canceled.
func Monitor(ctx context.Context, dir string, opts ...Option) error {
	return platform.Monitor(ctx, dir, opts...)
}

// --- Safety & Utils ---

// FindWorkspaceRoot recursively looks upwards for a workspace root indicator.
func FindWorkspaceRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}
