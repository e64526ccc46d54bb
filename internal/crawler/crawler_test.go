package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"olx-rent-crawler/internal/listing"
)

// MockFetcher is a mock implementation of the PageFetcher interface.
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) FetchWithRetry(ctx context.Context, url string) []byte {
	args := m.Called(ctx, url)
	if b, ok := args.Get(0).([]byte); ok {
		return b
	}
	return nil
}

// MockPhones is a mock implementation of the PhoneResolver interface.
type MockPhones struct {
	mock.Mock
}

func (m *MockPhones) Resolve(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

// MockDetails is a mock implementation of the DetailSource interface.
type MockDetails struct {
	mock.Mock
}

func (m *MockDetails) FetchDetail(ctx context.Context, id, phone string) (*listing.Record, error) {
	args := m.Called(ctx, id, phone)
	if rec, ok := args.Get(0).(*listing.Record); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockStore is a mock implementation of the AdStore interface.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) Upsert(ctx context.Context, rec *listing.Record) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

type countPauser struct {
	calls int
}

func (p *countPauser) Pause(_ context.Context, _ time.Duration) {
	p.calls++
}

func pageMarkup(ids ...string) []byte {
	var b strings.Builder
	b.WriteString(`<html><body><span data-testid="total-count">99</span>`)
	for _, id := range ids {
		fmt.Fprintf(&b, `<div data-cy="l-card" id=%q></div>`, id)
	}
	b.WriteString(`</body></html>`)
	return []byte(b.String())
}

func testConfig(maxAds int) Config {
	return Config{
		Search: SearchParams{
			BaseURL:   "https://www.olx.example/",
			Type:      "nedvizhimost",
			Space:     "arenda-kvartiry",
			HasPhotos: true,
			FromOwner: true,
		},
		Cities:        []string{"almaty"},
		MaxAdsPerCity: maxAds,
	}
}

func pageURL(cfg Config, page int) string {
	return BuildSearchURL(cfg.Search, page, "almaty")
}

func record(id string) *listing.Record {
	return &listing.Record{ID: id, City: "Алматы", Phone: "+77071234567", Photos: []string{}}
}

func newTestEngine(cfg Config, f *MockFetcher, p *MockPhones, d *MockDetails, s *MockStore) (*Engine, *countPauser) {
	pauser := &countPauser{}
	engine := NewEngine(cfg, f, p, d, s, nil, zap.NewNop()).WithPauser(pauser)
	return engine, pauser
}

func TestEngineRun(t *testing.T) {
	t.Run("two-page city with one known and one new listing", func(t *testing.T) {
		cfg := testConfig(10)
		fetcher := new(MockFetcher)
		phones := new(MockPhones)
		details := new(MockDetails)
		store := new(MockStore)

		fetcher.On("FetchWithRetry", mock.Anything, pageURL(cfg, 1)).Return(pageMarkup("111", "222")).Once()
		fetcher.On("FetchWithRetry", mock.Anything, pageURL(cfg, 2)).Return(pageMarkup()).Once()

		store.On("Exists", mock.Anything, "111").Return(true, nil).Once()
		store.On("Exists", mock.Anything, "222").Return(false, nil).Once()
		phones.On("Resolve", mock.Anything, "222").Return("+77071234567", nil).Once()
		details.On("FetchDetail", mock.Anything, "222", "+77071234567").Return(record("222"), nil).Once()
		store.On("Upsert", mock.Anything, record("222")).Return(nil).Once()

		engine, pauser := newTestEngine(cfg, fetcher, phones, details, store)
		collected, err := engine.Run(context.Background())

		require.NoError(t, err)
		require.Equal(t, 1, collected)
		fetcher.AssertExpectations(t)
		store.AssertExpectations(t)
		phones.AssertExpectations(t)
		details.AssertExpectations(t)
		fetcher.AssertNotCalled(t, "FetchWithRetry", mock.Anything, pageURL(cfg, 3))
		require.Equal(t, 2, pauser.calls, "pacing after every listing, success or skip")
	})

	t.Run("per-city cap halts mid-page", func(t *testing.T) {
		cfg := testConfig(1)
		fetcher := new(MockFetcher)
		phones := new(MockPhones)
		details := new(MockDetails)
		store := new(MockStore)

		fetcher.On("FetchWithRetry", mock.Anything, pageURL(cfg, 1)).Return(pageMarkup("301", "302", "303")).Once()

		store.On("Exists", mock.Anything, "301").Return(false, nil).Once()
		phones.On("Resolve", mock.Anything, "301").Return("+77071234567", nil).Once()
		details.On("FetchDetail", mock.Anything, "301", "+77071234567").Return(record("301"), nil).Once()
		store.On("Upsert", mock.Anything, record("301")).Return(nil).Once()

		engine, _ := newTestEngine(cfg, fetcher, phones, details, store)
		collected, err := engine.Run(context.Background())

		require.NoError(t, err)
		require.Equal(t, 1, collected)
		store.AssertNumberOfCalls(t, "Exists", 1)
		fetcher.AssertNotCalled(t, "FetchWithRetry", mock.Anything, pageURL(cfg, 2))
	})

	t.Run("no page content stops the city", func(t *testing.T) {
		cfg := testConfig(10)
		fetcher := new(MockFetcher)
		store := new(MockStore)

		fetcher.On("FetchWithRetry", mock.Anything, pageURL(cfg, 1)).Return([]byte(nil)).Once()

		engine, _ := newTestEngine(cfg, fetcher, new(MockPhones), new(MockDetails), store)
		collected, err := engine.Run(context.Background())

		require.NoError(t, err)
		require.Zero(t, collected)
		store.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything)
	})

	t.Run("dedup check failure skips the listing without expensive calls", func(t *testing.T) {
		cfg := testConfig(10)
		fetcher := new(MockFetcher)
		phones := new(MockPhones)
		details := new(MockDetails)
		store := new(MockStore)

		fetcher.On("FetchWithRetry", mock.Anything, pageURL(cfg, 1)).Return(pageMarkup("111")).Once()
		fetcher.On("FetchWithRetry", mock.Anything, pageURL(cfg, 2)).Return(pageMarkup()).Once()
		store.On("Exists", mock.Anything, "111").Return(false, errors.New("backend down")).Once()

		engine, _ := newTestEngine(cfg, fetcher, phones, details, store)
		collected, err := engine.Run(context.Background())

		require.NoError(t, err)
		require.Zero(t, collected)
		phones.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
		details.AssertNotCalled(t, "FetchDetail", mock.Anything, mock.Anything, mock.Anything)
		store.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})

	t.Run("missing phone short-circuits before the detail fetch", func(t *testing.T) {
		cfg := testConfig(10)
		fetcher := new(MockFetcher)
		phones := new(MockPhones)
		details := new(MockDetails)
		store := new(MockStore)

		fetcher.On("FetchWithRetry", mock.Anything, pageURL(cfg, 1)).Return(pageMarkup("111")).Once()
		fetcher.On("FetchWithRetry", mock.Anything, pageURL(cfg, 2)).Return(pageMarkup()).Once()
		store.On("Exists", mock.Anything, "111").Return(false, nil).Once()
		phones.On("Resolve", mock.Anything, "111").Return("", errors.New("no phone disclosed")).Once()

		engine, _ := newTestEngine(cfg, fetcher, phones, details, store)
		collected, err := engine.Run(context.Background())

		require.NoError(t, err)
		require.Zero(t, collected)
		details.AssertNotCalled(t, "FetchDetail", mock.Anything, mock.Anything, mock.Anything)
		store.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})

	t.Run("persist failure does not abort the run", func(t *testing.T) {
		cfg := testConfig(10)
		fetcher := new(MockFetcher)
		phones := new(MockPhones)
		details := new(MockDetails)
		store := new(MockStore)

		fetcher.On("FetchWithRetry", mock.Anything, pageURL(cfg, 1)).Return(pageMarkup("111", "222")).Once()
		fetcher.On("FetchWithRetry", mock.Anything, pageURL(cfg, 2)).Return(pageMarkup()).Once()

		store.On("Exists", mock.Anything, "111").Return(false, nil).Once()
		phones.On("Resolve", mock.Anything, "111").Return("+77071234567", nil).Once()
		details.On("FetchDetail", mock.Anything, "111", "+77071234567").Return(record("111"), nil).Once()
		store.On("Upsert", mock.Anything, record("111")).Return(errors.New("insert failed")).Once()

		store.On("Exists", mock.Anything, "222").Return(false, nil).Once()
		phones.On("Resolve", mock.Anything, "222").Return("+77071234567", nil).Once()
		details.On("FetchDetail", mock.Anything, "222", "+77071234567").Return(record("222"), nil).Once()
		store.On("Upsert", mock.Anything, record("222")).Return(nil).Once()

		engine, _ := newTestEngine(cfg, fetcher, phones, details, store)
		collected, err := engine.Run(context.Background())

		require.NoError(t, err)
		require.Equal(t, 1, collected, "failed insert is not counted; listing stays eligible next run")
	})

	t.Run("duplicate id on one page persists once", func(t *testing.T) {
		cfg := testConfig(10)
		fetcher := new(MockFetcher)
		phones := new(MockPhones)
		details := new(MockDetails)
		store := new(MockStore)

		fetcher.On("FetchWithRetry", mock.Anything, pageURL(cfg, 1)).Return(pageMarkup("501", "501")).Once()
		fetcher.On("FetchWithRetry", mock.Anything, pageURL(cfg, 2)).Return(pageMarkup()).Once()

		// First occurrence is fresh; the second sees the row just written.
		store.On("Exists", mock.Anything, "501").Return(false, nil).Once()
		store.On("Exists", mock.Anything, "501").Return(true, nil).Once()
		phones.On("Resolve", mock.Anything, "501").Return("+77071234567", nil).Once()
		details.On("FetchDetail", mock.Anything, "501", "+77071234567").Return(record("501"), nil).Once()
		store.On("Upsert", mock.Anything, record("501")).Return(nil).Once()

		engine, _ := newTestEngine(cfg, fetcher, phones, details, store)
		collected, err := engine.Run(context.Background())

		require.NoError(t, err)
		require.Equal(t, 1, collected)
		store.AssertNumberOfCalls(t, "Upsert", 1)
	})

	t.Run("cancelled context halts city advancement", func(t *testing.T) {
		cfg := testConfig(10)
		fetcher := new(MockFetcher)
		store := new(MockStore)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		engine, _ := newTestEngine(cfg, fetcher, new(MockPhones), new(MockDetails), store)
		collected, err := engine.Run(ctx)

		require.ErrorIs(t, err, context.Canceled)
		require.Zero(t, collected)
		fetcher.AssertNotCalled(t, "FetchWithRetry", mock.Anything, mock.Anything)
	})

	t.Run("cities crawled sequentially in configured order", func(t *testing.T) {
		cfg := testConfig(10)
		cfg.Cities = []string{"almaty", "astana"}
		fetcher := new(MockFetcher)
		store := new(MockStore)

		var order []string
		for _, city := range cfg.Cities {
			city := city
			fetcher.On("FetchWithRetry", mock.Anything, BuildSearchURL(cfg.Search, 1, city)).
				Run(func(mock.Arguments) { order = append(order, city) }).
				Return([]byte(nil)).Once()
		}

		engine, _ := newTestEngine(cfg, fetcher, new(MockPhones), new(MockDetails), store)
		collected, err := engine.Run(context.Background())

		require.NoError(t, err)
		require.Zero(t, collected)
		require.Equal(t, []string{"almaty", "astana"}, order)
	})
}
