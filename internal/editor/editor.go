// Package editor implements the three editing surfaces of a draft: general
// settings, seed sources, and analyzer configuration. Editors hold no state
// of their own; every call reads the live draft and writes back through the
// store's reducers.
package editor

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/JakeFAU/crawl-console/internal/draft"
)

// ErrNoDraft is returned when an edit is attempted with no active draft.
var ErrNoDraft = errors.New("no draft is being edited")

// ErrIndex is returned for out-of-range list positions.
var ErrIndex = errors.New("index out of range")

// General edits name, worker count, and the domain blacklist.
type General struct {
	store *draft.Store
}

// NewGeneral returns a General editor over store.
func NewGeneral(store *draft.Store) General {
	return General{store: store}
}

// SetName sets the draft name.
func (g General) SetName(name string) error {
	return applied(g.store.MutateGeneral(draft.GeneralFields{Name: &name}))
}

// SetWorkerCount sets the worker count. Range checks happen at submission.
func (g General) SetWorkerCount(n int) error {
	return applied(g.store.MutateGeneral(draft.GeneralFields{WorkerCount: &n}))
}

// BlockDomain adds domain to the blacklist once.
func (g General) BlockDomain(domain string) error {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return errors.New("domain cannot be empty")
	}
	spec, ok := g.store.Current()
	if !ok {
		return ErrNoDraft
	}
	if slices.Contains(spec.DomainBlacklist, domain) {
		return nil
	}
	list := append(spec.DomainBlacklist, domain)
	return applied(g.store.MutateGeneral(draft.GeneralFields{DomainBlacklist: &list}))
}

// UnblockDomain removes domain from the blacklist.
func (g General) UnblockDomain(domain string) error {
	spec, ok := g.store.Current()
	if !ok {
		return ErrNoDraft
	}
	domain = strings.ToLower(strings.TrimSpace(domain))
	list := slices.DeleteFunc(spec.DomainBlacklist, func(d string) bool { return d == domain })
	return applied(g.store.MutateGeneral(draft.GeneralFields{DomainBlacklist: &list}))
}

// Seeds edits the ordered seed list.
type Seeds struct {
	store *draft.Store
}

// NewSeeds returns a Seeds editor over store.
func NewSeeds(store *draft.Store) Seeds {
	return Seeds{store: store}
}

// Add appends urls, skipping blanks and entries already present. It returns
// how many were added.
func (s Seeds) Add(urls ...string) (int, error) {
	spec, ok := s.store.Current()
	if !ok {
		return 0, ErrNoDraft
	}
	seeds, added := MergeSeeds(spec.Seeds, urls)
	if added == 0 {
		return 0, nil
	}
	return added, applied(s.store.MutateSeeds(seeds))
}

// Remove deletes the seed at index i.
func (s Seeds) Remove(i int) error {
	spec, ok := s.store.Current()
	if !ok {
		return ErrNoDraft
	}
	if i < 0 || i >= len(spec.Seeds) {
		return fmt.Errorf("seed %d: %w", i, ErrIndex)
	}
	return applied(s.store.MutateSeeds(slices.Delete(spec.Seeds, i, i+1)))
}

// Move swaps the seed at index i with its neighbour in direction delta.
func (s Seeds) Move(i, delta int) error {
	spec, ok := s.store.Current()
	if !ok {
		return ErrNoDraft
	}
	j := i + delta
	if i < 0 || i >= len(spec.Seeds) || j < 0 || j >= len(spec.Seeds) {
		return fmt.Errorf("move seed %d to %d: %w", i, j, ErrIndex)
	}
	spec.Seeds[i], spec.Seeds[j] = spec.Seeds[j], spec.Seeds[i]
	return applied(s.store.MutateSeeds(spec.Seeds))
}

// Replace sets the seed list from newline or whitespace separated text.
func (s Seeds) Replace(text string) error {
	seeds, _ := MergeSeeds(nil, strings.Fields(text))
	return applied(s.store.MutateSeeds(seeds))
}

// Clear empties the seed list.
func (s Seeds) Clear() error {
	return applied(s.store.MutateSeeds(nil))
}

// MergeSeeds appends the trimmed, non-empty, unseen entries of incoming to a
// copy of existing and reports how many were added.
func MergeSeeds(existing, incoming []string) ([]string, int) {
	out := slices.Clone(existing)
	seen := make(map[string]struct{}, len(out)+len(incoming))
	for _, u := range out {
		seen[u] = struct{}{}
	}
	added := 0
	for _, u := range incoming {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
		added++
	}
	return out, added
}

func applied(ok bool) error {
	if !ok {
		return ErrNoDraft
	}
	return nil
}
