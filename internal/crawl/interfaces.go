package crawl

import (
	"context"
	"time"
)

// Lister fetches the full roster.
type Lister interface {
	ListCrawls(ctx context.Context) ([]Info, error)
}

// Commander issues job lifecycle commands.
type Commander interface {
	CreateCrawl(ctx context.Context, spec Spec) (CreateResult, error)
	StartCrawl(ctx context.Context, crawlID string) (TransitionResult, error)
	StopCrawl(ctx context.Context, crawlID string) (TransitionResult, error)
	DeleteCrawl(ctx context.Context, crawlID string) (DeleteResult, error)
	ExportSpec(ctx context.Context, crawlID string) (Export, error)
	CollectSeeds(ctx context.Context, queries ...SeedQuery) ([]string, error)
}

// ResultsReader fetches ranked summaries and full records.
type ResultsReader interface {
	RecordSummaries(ctx context.Context, crawlID string, count int, scoreType string) ([]RecordSummary, error)
	Records(ctx context.Context, crawlID string, recordIDs []string) ([]Record, error)
}

// Gateway is the full remote service boundary.
type Gateway interface {
	Lister
	Commander
	ResultsReader
	AnalyzerCatalog(ctx context.Context) ([]AnalyzerInfo, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job IDs.
type IDGenerator interface {
	NewID() (string, error)
}
