package crawl

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// AnalyzerName identifies a scoring strategy. It doubles as the tag of the
// AnalyzerSpec union.
type AnalyzerName string

// Known analyzers.
const (
	KeywordAnalyzer AnalyzerName = "KeywordScoreAnalyzer"
	LLMAnalyzer     AnalyzerName = "DhLlmScoreAnalyzer"
)

// AnalyzerNames lists the fixed analyzer vocabulary in display order.
var AnalyzerNames = []AnalyzerName{KeywordAnalyzer, LLMAnalyzer}

// Valid reports whether n is part of the analyzer vocabulary.
func (n AnalyzerName) Valid() bool {
	return slices.Contains(AnalyzerNames, n)
}

// AnalyzerSpec is the configuration block for one scoring strategy.
// Implementations are KeywordSpec and LLMSpec.
type AnalyzerSpec interface {
	Name() AnalyzerName
	Weight() float64
	// WithWeight returns a copy with the composite weight replaced.
	WithWeight(w float64) AnalyzerSpec
	// CloneSpec returns a deep copy.
	CloneSpec() AnalyzerSpec
}

// DefaultAnalyzer returns the empty configuration for name.
func DefaultAnalyzer(name AnalyzerName) (AnalyzerSpec, error) {
	switch name {
	case KeywordAnalyzer:
		return KeywordSpec{CompositeWeight: 1}, nil
	case LLMAnalyzer:
		return LLMSpec{CompositeWeight: 1, OutputFormat: map[string]string{"score": "float"}}, nil
	default:
		return nil, fmt.Errorf("unknown analyzer %q", name)
	}
}

// RegexCase is the case-sensitivity of a weighted regex. The service encodes
// it as a numeric flag; only the two observed values are modeled.
type RegexCase int

// Regex case values as sent on the wire.
const (
	CaseSensitive   RegexCase = 0
	CaseInsensitive RegexCase = 2
)

// caseFlagBit is the ignore-case bit of the wire flags.
const caseFlagBit = 2

// UnmarshalJSON maps any flag value onto the two-valued enumeration.
func (c *RegexCase) UnmarshalJSON(data []byte) error {
	var flags int
	if err := json.Unmarshal(data, &flags); err != nil {
		return fmt.Errorf("decode regex flags: %w", err)
	}
	if flags&caseFlagBit != 0 {
		*c = CaseInsensitive
	} else {
		*c = CaseSensitive
	}
	return nil
}

// String implements fmt.Stringer.
func (c RegexCase) String() string {
	if c == CaseInsensitive {
		return "case-insensitive"
	}
	return "case-sensitive"
}

// WeightedKeyword is a keyword and its scoring weight.
type WeightedKeyword struct {
	Keyword string  `json:"keyword" yaml:"keyword"`
	Weight  float64 `json:"weight" yaml:"weight"`
}

// WeightedRegex is a pattern and its scoring weight.
type WeightedRegex struct {
	Regex  string    `json:"regex" yaml:"regex"`
	Weight float64   `json:"weight" yaml:"weight"`
	Flags  RegexCase `json:"flags" yaml:"flags"`
}

// KeywordSpec configures the keyword/regex matcher.
type KeywordSpec struct {
	CompositeWeight float64
	Keywords        []WeightedKeyword
	Regexes         []WeightedRegex
}

// Name implements AnalyzerSpec.
func (KeywordSpec) Name() AnalyzerName { return KeywordAnalyzer }

// Weight implements AnalyzerSpec.
func (k KeywordSpec) Weight() float64 { return k.CompositeWeight }

// WithWeight implements AnalyzerSpec.
func (k KeywordSpec) WithWeight(w float64) AnalyzerSpec {
	cp := k.clone()
	cp.CompositeWeight = w
	return cp
}

// CloneSpec implements AnalyzerSpec.
func (k KeywordSpec) CloneSpec() AnalyzerSpec { return k.clone() }

func (k KeywordSpec) clone() KeywordSpec {
	return KeywordSpec{
		CompositeWeight: k.CompositeWeight,
		Keywords:        slices.Clone(k.Keywords),
		Regexes:         slices.Clone(k.Regexes),
	}
}

type keywordWire struct {
	Name            AnalyzerName      `json:"name"`
	CompositeWeight float64           `json:"composite_weight"`
	Keywords        []WeightedKeyword `json:"keywords"`
	Regexes         []WeightedRegex   `json:"regexes"`
}

// MarshalJSON adds the analyzer tag and normalizes nil lists.
func (k KeywordSpec) MarshalJSON() ([]byte, error) {
	w := keywordWire{
		Name:            KeywordAnalyzer,
		CompositeWeight: k.CompositeWeight,
		Keywords:        k.Keywords,
		Regexes:         k.Regexes,
	}
	if w.Keywords == nil {
		w.Keywords = []WeightedKeyword{}
	}
	if w.Regexes == nil {
		w.Regexes = []WeightedRegex{}
	}
	return json.Marshal(w) //nolint:wrapcheck
}

// UnmarshalJSON decodes the wire form.
func (k *KeywordSpec) UnmarshalJSON(data []byte) error {
	var w keywordWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode keyword analyzer: %w", err)
	}
	*k = KeywordSpec{CompositeWeight: w.CompositeWeight, Keywords: w.Keywords, Regexes: w.Regexes}
	return nil
}

// LLMSpec configures the prompt-driven scorer.
type LLMSpec struct {
	CompositeWeight float64
	Prompt          string
	// OutputFormat maps output field names to type names.
	OutputFormat map[string]string
}

// Name implements AnalyzerSpec.
func (LLMSpec) Name() AnalyzerName { return LLMAnalyzer }

// Weight implements AnalyzerSpec.
func (l LLMSpec) Weight() float64 { return l.CompositeWeight }

// WithWeight implements AnalyzerSpec.
func (l LLMSpec) WithWeight(w float64) AnalyzerSpec {
	cp := l.clone()
	cp.CompositeWeight = w
	return cp
}

// CloneSpec implements AnalyzerSpec.
func (l LLMSpec) CloneSpec() AnalyzerSpec { return l.clone() }

func (l LLMSpec) clone() LLMSpec {
	return LLMSpec{
		CompositeWeight: l.CompositeWeight,
		Prompt:          l.Prompt,
		OutputFormat:    maps.Clone(l.OutputFormat),
	}
}

type fieldMapWire struct {
	NameToType map[string]string `json:"name_to_type"`
}

type scoringInputWire struct {
	Prompt       string        `json:"prompt"`
	OutputFormat *fieldMapWire `json:"output_format,omitempty"`
}

type llmWire struct {
	Name            AnalyzerName     `json:"name"`
	CompositeWeight float64          `json:"composite_weight"`
	ScoringInput    scoringInputWire `json:"scoring_input"`
}

// MarshalJSON adds the analyzer tag and nests the prompt input.
func (l LLMSpec) MarshalJSON() ([]byte, error) {
	w := llmWire{
		Name:            LLMAnalyzer,
		CompositeWeight: l.CompositeWeight,
		ScoringInput:    scoringInputWire{Prompt: l.Prompt},
	}
	if len(l.OutputFormat) > 0 {
		w.ScoringInput.OutputFormat = &fieldMapWire{NameToType: l.OutputFormat}
	}
	return json.Marshal(w) //nolint:wrapcheck
}

// UnmarshalJSON decodes the wire form.
func (l *LLMSpec) UnmarshalJSON(data []byte) error {
	var w llmWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode llm analyzer: %w", err)
	}
	*l = LLMSpec{CompositeWeight: w.CompositeWeight, Prompt: w.ScoringInput.Prompt}
	if w.ScoringInput.OutputFormat != nil {
		l.OutputFormat = w.ScoringInput.OutputFormat.NameToType
	}
	return nil
}

// AnalyzerSpecs is an ordered list of analyzer configurations, unique by name.
type AnalyzerSpecs []AnalyzerSpec

// Get returns the spec registered under name.
func (a AnalyzerSpecs) Get(name AnalyzerName) (AnalyzerSpec, bool) {
	for _, spec := range a {
		if spec.Name() == name {
			return spec, true
		}
	}
	return nil, false
}

// With returns a new list where spec replaces any entry with the same name,
// keeping its position, or is appended.
func (a AnalyzerSpecs) With(spec AnalyzerSpec) AnalyzerSpecs {
	out := make(AnalyzerSpecs, 0, len(a)+1)
	replaced := false
	for _, existing := range a {
		if existing.Name() == spec.Name() {
			out = append(out, spec)
			replaced = true
			continue
		}
		out = append(out, existing)
	}
	if !replaced {
		out = append(out, spec)
	}
	return out
}

// Without returns a new list minus the entry named name.
func (a AnalyzerSpecs) Without(name AnalyzerName) AnalyzerSpecs {
	out := make(AnalyzerSpecs, 0, len(a))
	for _, existing := range a {
		if existing.Name() != name {
			out = append(out, existing)
		}
	}
	return out
}

// Clone deep-copies every entry.
func (a AnalyzerSpecs) Clone() AnalyzerSpecs {
	if a == nil {
		return nil
	}
	out := make(AnalyzerSpecs, len(a))
	for i, spec := range a {
		out[i] = spec.CloneSpec()
	}
	return out
}

// MarshalJSON always emits a list.
func (a AnalyzerSpecs) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]AnalyzerSpec(a)) //nolint:wrapcheck
}

// UnmarshalJSON dispatches each element on its name tag. Later entries with
// a repeated name replace earlier ones.
func (a *AnalyzerSpecs) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode analyzer specs: %w", err)
	}
	out := make(AnalyzerSpecs, 0, len(raw))
	for i, item := range raw {
		var tag struct {
			Name AnalyzerName `json:"name"`
		}
		if err := json.Unmarshal(item, &tag); err != nil {
			return fmt.Errorf("decode analyzer spec %d: %w", i, err)
		}
		var spec AnalyzerSpec
		switch tag.Name {
		case KeywordAnalyzer:
			var k KeywordSpec
			if err := json.Unmarshal(item, &k); err != nil {
				return err
			}
			spec = k
		case LLMAnalyzer:
			var l LLMSpec
			if err := json.Unmarshal(item, &l); err != nil {
				return err
			}
			spec = l
		default:
			return fmt.Errorf("decode analyzer spec %d: unknown analyzer %q", i, tag.Name)
		}
		out = out.With(spec)
	}
	*a = out
	return nil
}
