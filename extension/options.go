package extension

import (
	"time"

	tokensale "github.com/xraph/tokensale"
	"github.com/xraph/tokensale/plugin"
	"github.com/xraph/tokensale/store"
)

// Option configures the Tokensale Forge extension.
type Option func(*Extension)

// WithStore sets the store for the tokensale engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithEngineOption passes a tokensale.Option through to the underlying engine.
func WithEngineOption(opt tokensale.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a tokensale plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, tokensale.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithJournalBatchSize sets the number of journal records to buffer before flushing.
func WithJournalBatchSize(size int) Option {
	return func(e *Extension) { e.config.JournalBatchSize = size }
}

// WithJournalFlushInterval sets how frequently the journal buffer is flushed.
func WithJournalFlushInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.JournalFlushInterval = d }
}

// WithGroveDatabase sets the name of the grove.DB the store should be
// built from. Pass an empty string for the default (unnamed) grove.DB.
// Auto-construction of the store from the named database is not wired
// yet, so pair this with WithStore for now; the name is still recorded
// in the config so deployments can set it ahead of time.
//
// TODO: resolve the named grove.DB from the DI container and build the
// matching postgres/sqlite/mongo store.
func WithGroveDatabase(name string) Option {
	return func(e *Extension) {
		e.config.GroveDatabase = name
		e.useGrove = true
	}
}
