package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/aretw0/arbor/pkg/activity"
	"github.com/aretw0/arbor/pkg/adapters/fs"
	"github.com/aretw0/arbor/pkg/adapters/remote"
	"github.com/aretw0/arbor/pkg/core"
	"github.com/aretw0/arbor/pkg/etapi"
)

// DefaultRootNoteID is the id of the remote store's top note, mirrored when
// no other subtree is configured.
const DefaultRootNoteID = "root"

// workspace bundles the resolved pieces every operation needs.
type workspace struct {
	config  Config
	session *etapi.Session
	store   *fs.Store
	logger  *slog.Logger
}

// openWorkspace locates the workspace root upwards of dir and wires the
// protocol session and the store.
func openWorkspace(dir string, o *options) (*workspace, error) {
	root, err := FindRoot(dir)
	if err != nil {
		return nil, err
	}

	cfg, err := LoadConfig(root)
	if err != nil {
		return nil, err
	}

	token, err := cfg.Token(o.token())
	if err != nil {
		return nil, err
	}

	return &workspace{
		config:  cfg,
		session: etapi.NewSession(cfg.ServerURL, token, o.logger),
		store: fs.NewStore(fs.Config{
			Path:      root,
			Logger:    o.logger,
			CachePath: filepath.Join(root, SystemDirName, "index.json"),
		}),
		logger: o.logger,
	}, nil
}

func (ws *workspace) loader(o *options) *remote.Loader {
	return &remote.Loader{Fetcher: ws.session, Logger: ws.logger, Workers: o.workers()}
}

// Init writes a fresh workspace configuration in dir. An existing
// configuration is only replaced when overwriting was requested.
func Init(ctx context.Context, dir, serverURL string, opts ...Option) error {
	o := apply(opts)

	if serverURL == "" {
		return fmt.Errorf("a server URL is required")
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	if _, err := os.Stat(configPath(abs)); err == nil && !o.overwrite() {
		return fmt.Errorf("a workspace already exists at %s (use --overwrite to reconfigure)", abs)
	}

	cfg := Config{
		WorkingDir: abs,
		ServerURL:  serverURL,
		RootNoteID: o.rootNoteID(),
	}
	if cfg.RootNoteID == "" {
		cfg.RootNoteID = DefaultRootNoteID
	}

	if err := cfg.Save(); err != nil {
		return err
	}
	if o.logger != nil {
		o.logger.Info("workspace configured", "dir", abs, "server", serverURL, "root", cfg.RootNoteID)
	}

	if o.pullAfterInit() {
		_, err := Pull(ctx, abs, opts...)
		return err
	}
	return nil
}

// SetToken stores the session token for the workspace upwards of dir.
func SetToken(dir, token string) error {
	if token == "" {
		return fmt.Errorf("an empty token cannot be stored")
	}

	root, err := FindRoot(dir)
	if err != nil {
		return err
	}
	return SaveToken(root, token)
}

// PullReport summarizes one pull.
type PullReport struct {
	RootID  string
	Notes   int
	Skipped []string
}

// Pull projects the remote subtree onto the local store, replacing any
// previous projection. An existing projection is only replaced when
// overwriting was requested, since local changes are lost with it.
func Pull(ctx context.Context, dir string, opts ...Option) (*PullReport, error) {
	o := apply(opts)

	ws, err := openWorkspace(dir, o)
	if err != nil {
		return nil, err
	}

	if ws.store.Exists() && !o.overwrite() {
		return nil, fmt.Errorf("a projection already exists at %s: pulling replaces it and discards local changes (use --overwrite to proceed)", ws.store.Dir())
	}
	if err := ws.store.Reset(); err != nil {
		return nil, err
	}
	if err := ws.store.Initialize(); err != nil {
		return nil, err
	}

	result, err := ws.loader(o).Load(ctx, ws.config.RootNoteID, func(item remote.Item) error {
		return ws.store.WriteNote(item.ID, item.Attributes, item.Extension, item.Content)
	})
	if err != nil {
		return nil, err
	}

	if err := ws.store.WriteHierarchy(result.Root); err != nil {
		return nil, err
	}

	report := &PullReport{RootID: result.Root.ID, Skipped: result.Skipped}
	core.Walk(result.Root, func(*core.Note) { report.Notes++ })

	if ws.logger != nil {
		ws.logger.Info("pull complete", "notes", report.Notes, "skipped", len(report.Skipped))
	}
	return report, nil
}

// DiffEntry is one reported difference, optionally with a unified diff of
// the content bytes.
type DiffEntry struct {
	Diff  core.Diff
	Patch string
}

// DiffReport lists the differences between the remote reference and the
// local snapshot, in the diff engine's order.
type DiffReport struct {
	Entries []DiffEntry
	Skipped []string
}

// Diff loads the remote reference and the local snapshot and compares them.
func Diff(ctx context.Context, dir string, opts ...Option) (*DiffReport, error) {
	o := apply(opts)

	ws, err := openWorkspace(dir, o)
	if err != nil {
		return nil, err
	}

	// Content bytes are only held when patches were requested; the loader
	// streams them through the sink before the shape exists.
	var (
		mu       sync.Mutex
		contents map[string][]byte
		sink     remote.Sink
	)
	if o.contentDiff() {
		contents = make(map[string][]byte)
		sink = func(item remote.Item) error {
			if item.Content == nil {
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			contents[item.ID] = item.Content
			return nil
		}
	}

	result, err := ws.loader(o).Load(ctx, ws.config.RootNoteID, sink)
	if err != nil {
		return nil, err
	}

	local, err := ws.store.Scan()
	if err != nil {
		return nil, err
	}

	report := &DiffReport{Skipped: result.Skipped}
	for _, diff := range core.Compare(result.Root, local) {
		entry := DiffEntry{Diff: diff}
		if o.contentDiff() && diff.Kind == core.ContentChanged {
			entry.Patch, err = contentPatch(ws.store, contents[diff.Reference.ID], diff.Reference.ID, diff.Actual.ID)
			if err != nil {
				return nil, err
			}
		}
		report.Entries = append(report.Entries, entry)
	}
	return report, nil
}

// contentPatch renders remote against local content as a unified diff.
func contentPatch(store *fs.Store, remoteContent []byte, refID, actualID string) (string, error) {
	local, err := store.NoteContent(actualID)
	if err != nil {
		return "", err
	}

	patch, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(remoteContent)),
		B:        difflib.SplitLines(string(local)),
		FromFile: "remote/" + refID,
		ToFile:   "local/" + actualID,
		Context:  3,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render content diff for note %s: %w", actualID, err)
	}
	return patch, nil
}

// PushReport summarizes one push.
type PushReport struct {
	// Attempted lists the note ids whose content transfers ran.
	Attempted []string
	// Unsupported collects the differences the remote cannot absorb.
	Unsupported []error
}

// Push resolves every difference between the remote reference and the local
// snapshot and applies the supported transfers. Differences the remote
// cannot absorb fail the push, but they are all reported and they never
// stop the supported transfers from running.
func Push(ctx context.Context, dir string, opts ...Option) (*PushReport, error) {
	o := apply(opts)

	ws, err := openWorkspace(dir, o)
	if err != nil {
		return nil, err
	}

	result, err := ws.loader(o).Load(ctx, ws.config.RootNoteID, nil)
	if err != nil {
		return nil, err
	}

	local, err := ws.store.Scan()
	if err != nil {
		return nil, err
	}

	resolver := &activity.Resolver{Source: ws.store, Target: ws.session, Logger: ws.logger}
	activities, unsupported := resolver.Plan(core.Compare(result.Root, local))

	report := &PushReport{Unsupported: unsupported}
	for _, a := range activities {
		report.Attempted = append(report.Attempted, a.NoteID())
	}

	if ws.logger != nil {
		for _, uerr := range unsupported {
			ws.logger.Warn("difference not pushable", "error", uerr)
		}
		for _, a := range activities {
			ws.logger.Info("pushing", "activity", a.Describe())
		}
	}

	applyErr := activity.Apply(ctx, activities, o.workers())

	errs := append([]error{}, unsupported...)
	if applyErr != nil {
		errs = append(errs, applyErr)
	}
	if len(errs) > 0 {
		return report, errors.Join(errs...)
	}

	if ws.logger != nil {
		ws.logger.Info("push complete", "activities", len(activities))
	}
	return report, nil
}
