// Package draft holds the crawl specification being edited before it is
// submitted. Every mutation builds a new Spec and swaps it in whole, so
// snapshots handed out earlier never change underneath their holders.
package draft

import (
	"slices"

	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-console/internal/crawl"
)

// GeneralFields updates the general settings of a draft. Nil fields are
// left unchanged.
type GeneralFields struct {
	Name            *string
	WorkerCount     *int
	DomainBlacklist *[]string
}

// AnalyzerUpdater receives the current (or default) spec for an analyzer
// and returns its replacement.
type AnalyzerUpdater func(crawl.AnalyzerSpec) crawl.AnalyzerSpec

// Store owns at most one draft.
type Store struct {
	current *crawl.Spec
	version uint64
	logger  *zap.Logger
}

// New returns an empty Store.
func New(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{logger: logger}
}

// Active reports whether a draft is being edited.
func (s *Store) Active() bool {
	return s.current != nil
}

// Current returns a copy of the draft.
func (s *Store) Current() (crawl.Spec, bool) {
	if s.current == nil {
		return crawl.Spec{}, false
	}
	return s.current.Clone(), true
}

// Version increases on every Replace, Clear and successful mutation.
func (s *Store) Version() uint64 {
	return s.version
}

// Replace swaps the whole draft for a copy of spec.
func (s *Store) Replace(spec crawl.Spec) {
	next := spec.Clone()
	s.current = &next
	s.version++
	s.logger.Debug("draft replaced", zap.String("name", next.Name), zap.Uint64("version", s.version))
}

// Clear discards the draft.
func (s *Store) Clear() {
	if s.current == nil {
		return
	}
	s.current = nil
	s.version++
	s.logger.Debug("draft cleared", zap.Uint64("version", s.version))
}

// MutateSeeds replaces the seed list. It returns false when no draft is active.
func (s *Store) MutateSeeds(seeds []string) bool {
	return s.mutate("seeds", func(next *crawl.Spec) bool {
		next.Seeds = slices.Clone(seeds)
		return true
	})
}

// MutateGeneral applies the non-nil fields.
func (s *Store) MutateGeneral(fields GeneralFields) bool {
	return s.mutate("general", func(next *crawl.Spec) bool {
		if fields.Name != nil {
			next.Name = *fields.Name
		}
		if fields.WorkerCount != nil {
			next.WorkerCount = *fields.WorkerCount
		}
		if fields.DomainBlacklist != nil {
			next.DomainBlacklist = slices.Clone(*fields.DomainBlacklist)
		}
		return true
	})
}

// MutateAnalyzer runs update on the spec registered under name, or on its
// default when absent, and upserts the result in place. An updater that
// returns nil or a spec for a different analyzer leaves the draft alone.
func (s *Store) MutateAnalyzer(name crawl.AnalyzerName, update AnalyzerUpdater) bool {
	base, err := s.analyzerOrDefault(name)
	if err != nil {
		s.logger.Warn("analyzer mutation rejected", zap.Error(err))
		return false
	}
	return s.mutate("analyzer", func(next *crawl.Spec) bool {
		updated := update(base)
		if updated == nil || updated.Name() != name {
			return false
		}
		next.AnalyzerSpecs = next.AnalyzerSpecs.With(updated.CloneSpec())
		return true
	})
}

// RemoveAnalyzer drops the spec registered under name.
func (s *Store) RemoveAnalyzer(name crawl.AnalyzerName) bool {
	return s.mutate("analyzer", func(next *crawl.Spec) bool {
		if _, ok := next.AnalyzerSpecs.Get(name); !ok {
			return false
		}
		next.AnalyzerSpecs = next.AnalyzerSpecs.Without(name)
		return true
	})
}

// GetOrCreateAnalyzer returns a copy of the spec registered under name, or
// the analyzer's default. The store is not modified.
func (s *Store) GetOrCreateAnalyzer(name crawl.AnalyzerName) (crawl.AnalyzerSpec, error) {
	return s.analyzerOrDefault(name)
}

func (s *Store) analyzerOrDefault(name crawl.AnalyzerName) (crawl.AnalyzerSpec, error) {
	if s.current != nil {
		if spec, ok := s.current.AnalyzerSpecs.Get(name); ok {
			return spec.CloneSpec(), nil
		}
	}
	return crawl.DefaultAnalyzer(name) //nolint:wrapcheck
}

func (s *Store) mutate(group string, apply func(*crawl.Spec) bool) bool {
	if s.current == nil {
		s.logger.Debug("draft mutation ignored, no active draft", zap.String("group", group))
		return false
	}
	next := s.current.Clone()
	if !apply(&next) {
		return false
	}
	s.current = &next
	s.version++
	s.logger.Debug("draft mutated", zap.String("group", group), zap.Uint64("version", s.version))
	return true
}
