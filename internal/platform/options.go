package platform

import (
	"log/slog"
)

// options holds the internal configuration for arbor operations.
type options struct {
	logger *slog.Logger
	config map[string]interface{}
}

// Option defines a functional option for configuring arbor.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		logger: nil,
		config: make(map[string]interface{}),
	}
}

func apply(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) token() string {
	token, _ := o.config["token"].(string)
	return token
}

func (o *options) overwrite() bool {
	overwrite, _ := o.config["overwrite"].(bool)
	return overwrite
}

func (o *options) workers() int {
	workers, _ := o.config["workers"].(int)
	return workers
}

func (o *options) contentDiff() bool {
	enabled, _ := o.config["content_diff"].(bool)
	return enabled
}

func (o *options) rootNoteID() string {
	id, _ := o.config["root_note_id"].(string)
	return id
}

func (o *options) pullAfterInit() bool {
	pull, _ := o.config["pull_after_init"].(bool)
	return pull
}

func (o *options) ignores() []string {
	ignores, _ := o.config["ignores"].([]string)
	return ignores
}

func (o *options) refreshURL() string {
	url, _ := o.config["refresh_url"].(string)
	return url
}

func (o *options) refreshPort() int {
	port, _ := o.config["refresh_port"].(int)
	return port
}

// WithLogger sets the logger for all operations.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithToken sets the session token explicitly, overriding the environment
// and the workspace token file.
func WithToken(token string) Option {
	return func(o *options) {
		o.config["token"] = token
	}
}

// WithOverwrite allows operations to replace existing state: an existing
// configuration for Init, an existing projection for Pull.
func WithOverwrite(overwrite bool) Option {
	return func(o *options) {
		o.config["overwrite"] = overwrite
	}
}

// WithWorkers bounds the pools used for content extraction and activity
// application. Zero means one worker per available CPU.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.config["workers"] = n
	}
}

// WithContentDiff renders a unified diff of the content bytes for every
// content change reported by Diff.
func WithContentDiff(enabled bool) Option {
	return func(o *options) {
		o.config["content_diff"] = enabled
	}
}

// WithRootNoteID overrides the id of the note subtree to mirror.
// Defaults to "root", the id of the remote store's top note.
func WithRootNoteID(id string) Option {
	return func(o *options) {
		o.config["root_note_id"] = id
	}
}

// WithPull runs an initial pull right after Init writes the configuration.
func WithPull(pull bool) Option {
	return func(o *options) {
		o.config["pull_after_init"] = pull
	}
}

// WithIgnores sets doublestar glob patterns, relative to the store
// directory, whose events the monitor drops.
func WithIgnores(patterns []string) Option {
	return func(o *options) {
		o.config["ignores"] = patterns
	}
}

// WithRefreshURL sets the URL the monitor pings after each successful push,
// typically a development server's refresh hook.
func WithRefreshURL(url string) Option {
	return func(o *options) {
		o.config["refresh_url"] = url
	}
}

// WithRefreshPort is a shorthand for WithRefreshURL against a local
// development server on the given port.
func WithRefreshPort(port int) Option {
	return func(o *options) {
		o.config["refresh_port"] = port
	}
}
