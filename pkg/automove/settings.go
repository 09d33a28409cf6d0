package automove

import (
	"fmt"
	"strings"
	"sync"
)

// Defaults for the runtime options.
const (
	DefaultVariant     = "chess"
	DefaultSearchDepth = 15
)

// Options are the runtime-tunable search options.
type Options struct {
	Variant     string `json:"variant"`
	SearchDepth int    `json:"searchDepth"`
}

// OptionsPatch is a partial update; nil fields are left alone.
type OptionsPatch struct {
	Variant     *string `json:"variant,omitempty"`
	SearchDepth *int    `json:"searchDepth,omitempty"`
}

// Settings holds Options that may change while the pipeline runs. A search
// reads a snapshot when it is submitted, so an update never reaches a
// search already in flight.
type Settings struct {
	mu   sync.RWMutex
	opts Options
}

// NewSettings validates opts, filling zero values with defaults.
func NewSettings(opts Options) (*Settings, error) {
	if opts.Variant == "" {
		opts.Variant = DefaultVariant
	}
	if opts.SearchDepth == 0 {
		opts.SearchDepth = DefaultSearchDepth
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Settings{opts: opts}, nil
}

// Snapshot returns the current options.
func (s *Settings) Snapshot() Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts
}

// Apply merges patch into the current options and returns the result.
// An invalid patch leaves the options unchanged.
func (s *Settings) Apply(patch OptionsPatch) (Options, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.opts
	if patch.Variant != nil {
		next.Variant = strings.TrimSpace(*patch.Variant)
	}
	if patch.SearchDepth != nil {
		next.SearchDepth = *patch.SearchDepth
	}
	if err := next.validate(); err != nil {
		return s.opts, err
	}
	s.opts = next
	return next, nil
}

func (o Options) validate() error {
	if o.Variant == "" || strings.ContainsAny(o.Variant, " \t\n") {
		return fmt.Errorf("invalid variant %q", o.Variant)
	}
	if o.SearchDepth <= 0 {
		return fmt.Errorf("searchDepth must be > 0, got %d", o.SearchDepth)
	}
	return nil
}
