package editor

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/JakeFAU/crawl-console/internal/crawl"
	"github.com/JakeFAU/crawl-console/internal/draft"
)

// Analyzers edits the analyzer configuration of a draft.
type Analyzers struct {
	store *draft.Store
}

// NewAnalyzers returns an Analyzers editor over store.
func NewAnalyzers(store *draft.Store) Analyzers {
	return Analyzers{store: store}
}

// Enable adds the analyzer with its default configuration if absent.
func (a Analyzers) Enable(name crawl.AnalyzerName) error {
	if !name.Valid() {
		return fmt.Errorf("unknown analyzer %q", name)
	}
	return a.update(name, func(spec crawl.AnalyzerSpec) (crawl.AnalyzerSpec, error) { return spec, nil })
}

// Disable removes the analyzer from the draft.
func (a Analyzers) Disable(name crawl.AnalyzerName) error {
	if !a.store.Active() {
		return ErrNoDraft
	}
	a.store.RemoveAnalyzer(name)
	return nil
}

// SetWeight sets the analyzer's composite weight.
func (a Analyzers) SetWeight(name crawl.AnalyzerName, weight float64) error {
	if weight < 0 {
		return errors.New("composite weight cannot be negative")
	}
	return a.update(name, func(spec crawl.AnalyzerSpec) (crawl.AnalyzerSpec, error) {
		return spec.WithWeight(weight), nil
	})
}

// AddKeyword adds or reweights a keyword of the keyword analyzer.
func (a Analyzers) AddKeyword(keyword string, weight float64) error {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return errors.New("keyword cannot be empty")
	}
	return a.keyword(func(k crawl.KeywordSpec) (crawl.KeywordSpec, error) {
		idx := slices.IndexFunc(k.Keywords, func(w crawl.WeightedKeyword) bool {
			return strings.EqualFold(w.Keyword, keyword)
		})
		if idx >= 0 {
			k.Keywords[idx].Weight = weight
			return k, nil
		}
		k.Keywords = append(k.Keywords, crawl.WeightedKeyword{Keyword: keyword, Weight: weight})
		return k, nil
	})
}

// RemoveKeyword deletes the keyword at index i.
func (a Analyzers) RemoveKeyword(i int) error {
	return a.keyword(func(k crawl.KeywordSpec) (crawl.KeywordSpec, error) {
		if i < 0 || i >= len(k.Keywords) {
			return k, fmt.Errorf("keyword %d: %w", i, ErrIndex)
		}
		k.Keywords = slices.Delete(k.Keywords, i, i+1)
		return k, nil
	})
}

// AddRegex adds a weighted pattern. The pattern must compile.
func (a Analyzers) AddRegex(pattern string, weight float64, c crawl.RegexCase) error {
	if strings.TrimSpace(pattern) == "" {
		return errors.New("regex cannot be empty")
	}
	if _, err := regexp.Compile(pattern); err != nil {
		return fmt.Errorf("invalid regex: %w", err)
	}
	return a.keyword(func(k crawl.KeywordSpec) (crawl.KeywordSpec, error) {
		k.Regexes = append(k.Regexes, crawl.WeightedRegex{Regex: pattern, Weight: weight, Flags: c})
		return k, nil
	})
}

// RemoveRegex deletes the regex at index i.
func (a Analyzers) RemoveRegex(i int) error {
	return a.keyword(func(k crawl.KeywordSpec) (crawl.KeywordSpec, error) {
		if i < 0 || i >= len(k.Regexes) {
			return k, fmt.Errorf("regex %d: %w", i, ErrIndex)
		}
		k.Regexes = slices.Delete(k.Regexes, i, i+1)
		return k, nil
	})
}

// SetPrompt sets the prompt sent by the LLM analyzer.
func (a Analyzers) SetPrompt(prompt string) error {
	return a.llm(func(l crawl.LLMSpec) (crawl.LLMSpec, error) {
		l.Prompt = prompt
		return l, nil
	})
}

// SetOutputField declares an output field and its type for the LLM analyzer.
func (a Analyzers) SetOutputField(field, typ string) error {
	field, typ = strings.TrimSpace(field), strings.TrimSpace(typ)
	if field == "" || typ == "" {
		return errors.New("output field and type are required")
	}
	return a.llm(func(l crawl.LLMSpec) (crawl.LLMSpec, error) {
		l.OutputFormat = maps.Clone(l.OutputFormat)
		if l.OutputFormat == nil {
			l.OutputFormat = make(map[string]string)
		}
		l.OutputFormat[field] = typ
		return l, nil
	})
}

// RemoveOutputField drops an output field from the LLM analyzer.
func (a Analyzers) RemoveOutputField(field string) error {
	return a.llm(func(l crawl.LLMSpec) (crawl.LLMSpec, error) {
		if _, ok := l.OutputFormat[field]; !ok {
			return l, fmt.Errorf("output field %q is not defined", field)
		}
		l.OutputFormat = maps.Clone(l.OutputFormat)
		delete(l.OutputFormat, field)
		return l, nil
	})
}

func (a Analyzers) keyword(edit func(crawl.KeywordSpec) (crawl.KeywordSpec, error)) error {
	return a.update(crawl.KeywordAnalyzer, func(spec crawl.AnalyzerSpec) (crawl.AnalyzerSpec, error) {
		k, ok := spec.(crawl.KeywordSpec)
		if !ok {
			return nil, fmt.Errorf("unexpected %T for %s", spec, crawl.KeywordAnalyzer)
		}
		return edit(k)
	})
}

func (a Analyzers) llm(edit func(crawl.LLMSpec) (crawl.LLMSpec, error)) error {
	return a.update(crawl.LLMAnalyzer, func(spec crawl.AnalyzerSpec) (crawl.AnalyzerSpec, error) {
		l, ok := spec.(crawl.LLMSpec)
		if !ok {
			return nil, fmt.Errorf("unexpected %T for %s", spec, crawl.LLMAnalyzer)
		}
		return edit(l)
	})
}

// update runs edit against the analyzer's current or default spec and
// commits the result. Errors from edit abort without touching the draft.
func (a Analyzers) update(
	name crawl.AnalyzerName,
	edit func(crawl.AnalyzerSpec) (crawl.AnalyzerSpec, error),
) error {
	if !a.store.Active() {
		return ErrNoDraft
	}
	var editErr error
	ok := a.store.MutateAnalyzer(name, func(spec crawl.AnalyzerSpec) crawl.AnalyzerSpec {
		next, err := edit(spec)
		if err != nil {
			editErr = err
			return nil
		}
		return next
	})
	if editErr != nil {
		return editErr
	}
	if !ok {
		return fmt.Errorf("update analyzer %s: rejected", name)
	}
	return nil
}
