package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/supervisor"
	"github.com/aretw0/lifecycle/pkg/core/worker"

	"github.com/aretw0/arbor/pkg/activity"
	"github.com/aretw0/arbor/pkg/adapters/fs"
	"github.com/aretw0/arbor/pkg/core"
)

// eventBufferSize bounds how many settled edits may queue while an upload
// is in flight.
const eventBufferSize = 100

// Monitor watches the local store and pushes every settled content edit to
// the remote until ctx is canceled. The watcher runs under a supervisor and
// is restarted with backoff when it fails.
func Monitor(ctx context.Context, dir string, opts ...Option) error {
	o := apply(opts)

	ws, err := openWorkspace(dir, o)
	if err != nil {
		return err
	}

	// The initial scan validates the store and bounds what is pushable:
	// only notes the remote already knows can receive content.
	root, err := ws.store.Scan()
	if err != nil {
		return err
	}
	known := make(map[string]bool)
	core.Walk(root, func(n *core.Note) {
		if !core.IsTemporaryID(n.ID) {
			known[n.ID] = true
		}
	})

	events := make(chan core.Event, eventBufferSize)

	spec := supervisor.Spec{
		Name: "store-watcher",
		Type: string(worker.TypeGoroutine),
		Factory: func() (worker.Worker, error) {
			return fs.NewWatchWorker(ws.store, o.ignores(), events), nil
		},
		Backoff: supervisor.Backoff{
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     10 * time.Second,
			Multiplier:      2,
			ResetDuration:   time.Minute,
			MaxRestarts:     5,
			MaxDuration:     5 * time.Minute,
		},
		RestartPolicy: supervisor.RestartOnFailure,
	}

	sup := supervisor.New("arbor-monitor", supervisor.StrategyOneForOne, spec)
	if err := sup.Start(ctx); err != nil {
		return fmt.Errorf("failed to start store watcher: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sup.Stop(stopCtx)
	}()

	resolver := &activity.Resolver{Source: ws.store, Target: ws.session, Logger: ws.logger}
	refreshURL := resolveRefreshURL(o)

	if ws.logger != nil {
		ws.logger.Info("monitoring store", "dir", ws.store.Dir(), "notes", len(known))
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-events:
			ws.handleEvent(ctx, resolver, known, refreshURL, event)
		}
	}
}

// handleEvent pushes the edited note's content. Failures are logged, never
// fatal: the monitor outlives flaky uploads.
func (ws *workspace) handleEvent(ctx context.Context, resolver *activity.Resolver, known map[string]bool, refreshURL string, event core.Event) {
	if !known[event.ID] {
		if ws.logger != nil {
			ws.logger.Debug("ignoring event for unknown note", "id", event.ID)
		}
		return
	}

	stub := &core.Note{ID: event.ID}
	a, err := resolver.Resolve(core.Diff{Kind: core.ContentChanged, Reference: stub, Actual: stub})
	if err != nil {
		if ws.logger != nil {
			ws.logger.Error("failed to resolve push", "id", event.ID, "error", err)
		}
		return
	}

	if err := a.Run(ctx); err != nil {
		if ws.logger != nil {
			ws.logger.Error("push failed", "id", event.ID, "error", err)
		}
		return
	}
	if ws.logger != nil {
		ws.logger.Info("pushed content", "id", event.ID)
	}

	if refreshURL != "" {
		if err := ws.session.Ping(ctx, refreshURL); err != nil && ws.logger != nil {
			ws.logger.Debug("refresh ping failed", "url", refreshURL, "error", err)
		}
	}
}

// resolveRefreshURL picks the endpoint poked after each push so connected
// clients reload. An explicit URL wins over a local port; neither means no
// ping.
func resolveRefreshURL(o *options) string {
	if url := o.refreshURL(); url != "" {
		return url
	}
	if port := o.refreshPort(); port > 0 {
		return fmt.Sprintf("http://localhost:%d/dev/refresh/", port)
	}
	return ""
}
