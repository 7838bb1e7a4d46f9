package api

import "github.com/JakeFAU/crawl-console/internal/crawl"

func strPtr(s string) *string { return &s }

var analyzerCatalog = []crawl.AnalyzerInfo{
	{
		Name:        crawl.KeywordAnalyzer,
		Description: "Scores content by weighted keyword and regex matches.",
		SpecFields: []crawl.FieldDescriptor{
			{Name: "composite_weight", Type: "float", Description: "Weight in composite scoring", Required: true},
			{Name: "keywords", Type: "List[WeightedKeyword]", Description: "Keywords and their weights", Required: false, Default: strPtr("[]")},
			{Name: "regexes", Type: "List[WeightedRegex]", Description: "Regular expressions and their weights", Required: false, Default: strPtr("[]")},
		},
	},
	{
		Name:        crawl.LLMAnalyzer,
		Description: "Scores content by asking a language model service.",
		SpecFields: []crawl.FieldDescriptor{
			{Name: "composite_weight", Type: "float", Description: "Weight in composite scoring", Required: true},
			{Name: "scoring_input", Type: "PromptInput", Description: "Prompt sent with each page", Required: true},
		},
	},
}
