package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/crawl-console/internal/app"
	"github.com/JakeFAU/crawl-console/internal/config"
	"github.com/JakeFAU/crawl-console/internal/crawl"
)

// MockGateway mocks the crawl.Gateway interface.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) ListCrawls(ctx context.Context) ([]crawl.Info, error) {
	args := m.Called(ctx)
	infos, _ := args.Get(0).([]crawl.Info)
	return infos, args.Error(1)
}

func (m *MockGateway) CreateCrawl(ctx context.Context, spec crawl.Spec) (crawl.CreateResult, error) {
	args := m.Called(ctx, spec)
	return args.Get(0).(crawl.CreateResult), args.Error(1)
}

func (m *MockGateway) StartCrawl(ctx context.Context, crawlID string) (crawl.TransitionResult, error) {
	args := m.Called(ctx, crawlID)
	return args.Get(0).(crawl.TransitionResult), args.Error(1)
}

func (m *MockGateway) StopCrawl(ctx context.Context, crawlID string) (crawl.TransitionResult, error) {
	args := m.Called(ctx, crawlID)
	return args.Get(0).(crawl.TransitionResult), args.Error(1)
}

func (m *MockGateway) DeleteCrawl(ctx context.Context, crawlID string) (crawl.DeleteResult, error) {
	args := m.Called(ctx, crawlID)
	return args.Get(0).(crawl.DeleteResult), args.Error(1)
}

func (m *MockGateway) ExportSpec(ctx context.Context, crawlID string) (crawl.Export, error) {
	args := m.Called(ctx, crawlID)
	return args.Get(0).(crawl.Export), args.Error(1)
}

func (m *MockGateway) CollectSeeds(ctx context.Context, queries ...crawl.SeedQuery) ([]string, error) {
	args := m.Called(ctx, queries)
	urls, _ := args.Get(0).([]string)
	return urls, args.Error(1)
}

func (m *MockGateway) RecordSummaries(
	ctx context.Context,
	crawlID string,
	count int,
	scoreType string,
) ([]crawl.RecordSummary, error) {
	args := m.Called(ctx, crawlID, count, scoreType)
	rows, _ := args.Get(0).([]crawl.RecordSummary)
	return rows, args.Error(1)
}

func (m *MockGateway) Records(ctx context.Context, crawlID string, recordIDs []string) ([]crawl.Record, error) {
	args := m.Called(ctx, crawlID, recordIDs)
	recs, _ := args.Get(0).([]crawl.Record)
	return recs, args.Error(1)
}

func (m *MockGateway) AnalyzerCatalog(ctx context.Context) ([]crawl.AnalyzerInfo, error) {
	args := m.Called(ctx)
	infos, _ := args.Get(0).([]crawl.AnalyzerInfo)
	return infos, args.Error(1)
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Service:       config.ServiceConfig{BaseURL: "http://localhost:8000/api/v1", TimeoutSeconds: 5},
		Roster:        config.RosterConfig{IntervalMs: 1000},
		Notifications: config.NotificationsConfig{TTLSeconds: 60},
		Results:       config.ResultsConfig{SummaryCount: 100, PageSize: 10},
		Export:        config.ExportConfig{Dir: t.TempDir()},
		Stub:          config.StubConfig{Port: 8000, BasePath: "/api/v1"},
	}
}

func roster() []crawl.Info {
	return []crawl.Info{
		{Spec: crawl.Spec{Name: "Alpha"}, Status: crawl.Status{CrawlID: "c-1", CurrentState: crawl.StateCreated}},
		{Spec: crawl.Spec{Name: "Beta"}, Status: crawl.Status{CrawlID: "c-2", CurrentState: crawl.StateRunning}},
	}
}

func TestNewApp_Success(t *testing.T) {
	t.Parallel()

	a, err := app.New(testConfig(t), nil)
	require.NoError(t, err)
	assert.NotNil(t, a.Logger)
	assert.NotNil(t, a.Gateway)
	assert.NotNil(t, a.Roster)
	assert.NotNil(t, a.Dispatcher)
	assert.NotNil(t, a.Results)
	assert.False(t, a.Drafts.Active())
}

func TestNewApp_BadBaseURL(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Service.BaseURL = "not a url"
	_, err := app.New(cfg, nil)
	require.Error(t, err)
}

func TestSyncAndResolve(t *testing.T) {
	t.Parallel()

	gw := new(MockGateway)
	gw.On("ListCrawls", mock.Anything).Return(roster(), nil).Once()
	a := app.NewWithGateway(testConfig(t), gw, nil)

	require.NoError(t, a.Sync())
	info, err := a.Resolve("c-2")
	require.NoError(t, err)
	assert.Equal(t, "Beta", info.Spec.Name)

	info, err = a.Resolve("alpha")
	require.NoError(t, err)
	assert.Equal(t, "c-1", info.ID())

	_, err = a.Resolve("gamma")
	require.ErrorIs(t, err, crawl.ErrNotFound)
	gw.AssertExpectations(t)
}

func TestSyncFailure(t *testing.T) {
	t.Parallel()

	gw := new(MockGateway)
	gw.On("ListCrawls", mock.Anything).Return(nil, errors.New("connection refused")).Once()
	a := app.NewWithGateway(testConfig(t), gw, nil)

	require.Error(t, a.Sync())
	notices := a.Notices.Active()
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0].Message, "connection refused")
}

func TestDoFollowsRefreshAfterCommand(t *testing.T) {
	t.Parallel()

	gw := new(MockGateway)
	gw.On("ListCrawls", mock.Anything).Return(roster(), nil).Twice()
	gw.On("StartCrawl", mock.Anything, "c-1").
		Return(crawl.TransitionResult{CrawlID: "c-1", RunState: crawl.RunState{State: crawl.StateRunning}}, nil).
		Once()
	a := app.NewWithGateway(testConfig(t), gw, nil)
	require.NoError(t, a.Sync())

	a.Do(a.Dispatcher.Start("c-1"))

	assert.False(t, a.Dispatcher.InFlight("c-1"))
	notices := a.Notices.Active()
	require.Len(t, notices, 1)
	assert.Equal(t, `Started crawl "Alpha"`, notices[0].Message)
	gw.AssertExpectations(t)
}
