// Package activity resolves snapshot differences into remote-bound transfer
// activities and applies them on a bounded pool.
//
// The remote store only absorbs one kind of change today: replacing the
// content of an existing note. Every other difference resolves to an
// UnsupportedDiffError so callers can report each one and decide whether the
// supported transfers still run.
package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/arbor/pkg/core"
)

// ContentSource reads local content bodies, typically the filesystem store.
type ContentSource interface {
	NoteContent(id string) ([]byte, error)
}

// Uploader writes content bodies to the remote store.
type Uploader interface {
	PutNoteContent(ctx context.Context, id string, content []byte) error
}

// Activity is one resolved remote-bound transfer.
type Activity interface {
	// NoteID names the note the transfer touches.
	NoteID() string
	// Describe returns a short human description for progress reporting.
	Describe() string
	// Run executes the transfer.
	Run(ctx context.Context) error
}

// Resolver turns differences into activities.
type Resolver struct {
	Source ContentSource
	Target Uploader
	Logger *slog.Logger
}

// Resolve maps one difference to its activity. Differences the remote cannot
// absorb resolve to an UnsupportedDiffError; each is independently
// reportable and never aborts the resolution of its siblings.
func (r *Resolver) Resolve(diff core.Diff) (Activity, error) {
	switch diff.Kind {
	case core.ContentChanged:
		return &pushContent{resolver: r, noteID: diff.Actual.ID}, nil
	default:
		return nil, &core.UnsupportedDiffError{NoteID: diff.Actual.ID, Kind: diff.Kind}
	}
}

// Plan resolves every difference, splitting the supported transfers from the
// differences the remote cannot absorb.
func (r *Resolver) Plan(diffs []core.Diff) ([]Activity, []error) {
	var activities []Activity
	var unsupported []error

	for _, diff := range diffs {
		activity, err := r.Resolve(diff)
		if err != nil {
			unsupported = append(unsupported, err)
			continue
		}
		activities = append(activities, activity)
	}
	return activities, unsupported
}

// Apply runs the activities on a pool of at most workers goroutines, one per
// available CPU when workers is not positive. The transfers are independent:
// a failure never cancels a sibling, and every failure is reported.
func Apply(ctx context.Context, activities []Activity, workers int) error {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var g errgroup.Group
	g.SetLimit(workers)

	errs := make([]error, len(activities))
	for i, activity := range activities {
		g.Go(func() error {
			errs[i] = activity.Run(ctx)
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

// pushContent replaces the remote content of one note with the local bytes.
type pushContent struct {
	resolver *Resolver
	noteID   string
}

func (a *pushContent) NoteID() string {
	return a.noteID
}

func (a *pushContent) Describe() string {
	return fmt.Sprintf("replace content of note %s", a.noteID)
}

func (a *pushContent) Run(ctx context.Context) error {
	logger := a.resolver.Logger

	if logger != nil {
		logger.Debug("reading content", "id", a.noteID)
	}
	content, err := a.resolver.Source.NoteContent(a.noteID)
	if err != nil {
		return &core.TransferError{NoteID: a.noteID, Op: "read content", Err: err}
	}

	if logger != nil {
		logger.Debug("uploading content", "id", a.noteID, "bytes", len(content))
	}
	if err := a.resolver.Target.PutNoteContent(ctx, a.noteID, content); err != nil {
		return &core.TransferError{NoteID: a.noteID, Op: "upload content", Err: err}
	}
	return nil
}
