package crawl

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleSpec() Spec {
	return Spec{
		Name:        "Alpha",
		Seeds:       []string{"https://a.example", "https://b.example"},
		WorkerCount: 4,
		AnalyzerSpecs: AnalyzerSpecs{
			KeywordSpec{
				CompositeWeight: 0.5,
				Keywords:        []WeightedKeyword{{Keyword: "go", Weight: 2}},
				Regexes:         []WeightedRegex{{Regex: "crawl(er)?", Weight: 1, Flags: CaseInsensitive}},
			},
			LLMSpec{
				CompositeWeight: 0.5,
				Prompt:          "rate relevance",
				OutputFormat:    map[string]string{"score": "float"},
			},
		},
		DomainBlacklist: []string{"spam.example"},
	}
}

func TestSpecCloneAsCopyIsDeep(t *testing.T) {
	t.Parallel()

	src := sampleSpec()
	cp := src.CloneAsCopy()

	require.Equal(t, "Alpha (Copy)", cp.Name)
	require.Equal(t, src.Seeds, cp.Seeds)
	require.Equal(t, src.AnalyzerSpecs, cp.AnalyzerSpecs)

	cp.Seeds[0] = "https://changed.example"
	cp.DomainBlacklist[0] = "changed"
	kw := cp.AnalyzerSpecs[0].(KeywordSpec)
	kw.Keywords[0].Keyword = "changed"
	llm := cp.AnalyzerSpecs[1].(LLMSpec)
	llm.OutputFormat["extra"] = "str"

	require.Equal(t, "https://a.example", src.Seeds[0])
	require.Equal(t, "spam.example", src.DomainBlacklist[0])
	require.Equal(t, "go", src.AnalyzerSpecs[0].(KeywordSpec).Keywords[0].Keyword)
	require.NotContains(t, src.AnalyzerSpecs[1].(LLMSpec).OutputFormat, "extra")
}

func TestSpecValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		mutate   func(*Spec)
		existing []string
		wantErr  string
	}{
		{name: "valid", mutate: func(*Spec) {}},
		{name: "empty name", mutate: func(s *Spec) { s.Name = "" }, wantErr: "name is required"},
		{name: "names compared as given", mutate: func(s *Spec) { s.Name = " Alpha " }, existing: []string{"ALPHA"}},
		{name: "duplicate name", mutate: func(*Spec) {}, existing: []string{"ALPHA"}, wantErr: "already exists"},
		{name: "no seeds", mutate: func(s *Spec) { s.Seeds = nil }, wantErr: "at least one seed"},
		{name: "zero workers", mutate: func(s *Spec) { s.WorkerCount = 0 }, wantErr: "worker count"},
		{name: "too many workers", mutate: func(s *Spec) { s.WorkerCount = 17 }, wantErr: "worker count"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			spec := sampleSpec()
			tc.mutate(&spec)
			err := spec.Validate(tc.existing)
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestSpecJSONRoundTripKeepsAnalyzerTags(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(sampleSpec())
	require.NoError(t, err)
	require.Contains(t, string(data), `"name":"KeywordScoreAnalyzer"`)
	require.Contains(t, string(data), `"flags":2`)
	require.Contains(t, string(data), `"name_to_type":{"score":"float"}`)

	var decoded Spec
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, sampleSpec(), decoded)
}

func TestAnalyzerSpecsDecodeMergesDuplicateNames(t *testing.T) {
	t.Parallel()

	payload := `[
		{"name":"KeywordScoreAnalyzer","composite_weight":1,"keywords":[{"keyword":"a","weight":1}]},
		{"name":"KeywordScoreAnalyzer","composite_weight":3,"keywords":[{"keyword":"b","weight":1}]}
	]`
	var specs AnalyzerSpecs
	require.NoError(t, json.Unmarshal([]byte(payload), &specs))
	require.Len(t, specs, 1)
	require.InDelta(t, 3.0, specs[0].Weight(), 0.0001)
}

func TestAnalyzerSpecsDecodeRejectsUnknownName(t *testing.T) {
	t.Parallel()

	var specs AnalyzerSpecs
	err := json.Unmarshal([]byte(`[{"name":"Nope","composite_weight":1}]`), &specs)
	require.ErrorContains(t, err, "unknown analyzer")
}

func TestRegexCaseDecodesFlagBit(t *testing.T) {
	t.Parallel()

	var re WeightedRegex
	require.NoError(t, json.Unmarshal([]byte(`{"regex":"x","weight":1,"flags":34}`), &re))
	require.Equal(t, CaseInsensitive, re.Flags)
	require.NoError(t, json.Unmarshal([]byte(`{"regex":"x","weight":1,"flags":32}`), &re))
	require.Equal(t, CaseSensitive, re.Flags)
}

func TestAnalyzerSpecsWithReplacesInPlace(t *testing.T) {
	t.Parallel()

	specs := sampleSpec().AnalyzerSpecs
	updated := specs.With(KeywordSpec{CompositeWeight: 9})

	require.Len(t, updated, 2)
	require.Equal(t, KeywordAnalyzer, updated[0].Name())
	require.InDelta(t, 9.0, updated[0].Weight(), 0.0001)
	require.InDelta(t, 0.5, specs[0].Weight(), 0.0001)
	require.Len(t, updated.Without(LLMAnalyzer), 1)
}

func TestDefaultAnalyzer(t *testing.T) {
	t.Parallel()

	for _, name := range AnalyzerNames {
		spec, err := DefaultAnalyzer(name)
		require.NoError(t, err)
		require.Equal(t, name, spec.Name())
	}
	_, err := DefaultAnalyzer("bogus")
	require.Error(t, err)
}

func TestSeedQueryValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, SeedQuery{Engine: SearchBing, Query: "golang", ResultCount: 10}.Validate())
	err := SeedQuery{Engine: "Yahoo", Query: " ", ResultCount: 101}.Validate()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Problems, 3)
}
