package memory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMemoryService is an in-memory stand-in for the shared memory API.
type fakeMemoryService struct {
	mu      sync.Mutex
	entries []memoryEntry
}

func (f *fakeMemoryService) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/memory", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		var e memoryEntry
		require.NoError(t, json.NewDecoder(r.Body).Decode(&e))
		f.mu.Lock()
		f.entries = append(f.entries, e)
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/api/memory/search", func(w http.ResponseWriter, r *http.Request) {
		entity := r.URL.Query().Get("entity")
		f.mu.Lock()
		defer f.mu.Unlock()
		out := []memoryEntry{}
		for _, e := range f.entries {
			if e.Entity == entity {
				out = append(out, e)
			}
		}
		json.NewEncoder(w).Encode(out)
	})
	return mux
}

func TestRecordAndAverageImpactRoundTrip(t *testing.T) {
	fake := &fakeMemoryService{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	ctx := context.Background()

	err := c.Record(ctx, "BTC/USDT", "News: ... | Impact: 0.75", 0.75, map[string]any{"rsi": 28.0})
	require.NoError(t, err)

	avg := c.AverageImpact(ctx, "BTC/USDT")
	assert.InDelta(t, 0.75, avg, 1e-9)

	// Metadata carries the record type alongside caller fields
	require.Len(t, fake.entries, 1)
	assert.Equal(t, "trading_signal", fake.entries[0].Metadata["type"])
	assert.Equal(t, 28.0, fake.entries[0].Metadata["rsi"])
}

func TestAverageImpactMean(t *testing.T) {
	fake := &fakeMemoryService{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	ctx := context.Background()

	for _, score := range []float64{0.2, 0.4, 0.6} {
		require.NoError(t, c.Record(ctx, "ETH/USDT", "entry", score, nil))
	}

	assert.InDelta(t, 0.4, c.AverageImpact(ctx, "ETH/USDT"), 1e-9)
}

func TestAverageImpactEmptyHistory(t *testing.T) {
	fake := &fakeMemoryService{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	assert.Equal(t, 0.0, c.AverageImpact(context.Background(), "BTC/USDT"))
}

func TestAverageImpactReadFailureAbsorbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	assert.Equal(t, 0.0, c.AverageImpact(context.Background(), "BTC/USDT"))
}

func TestRecordFailurePropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	err := c.Record(context.Background(), "BTC/USDT", "entry", 0.5, nil)
	assert.Error(t, err)
}

func TestRecordUnreachableServicePropagates(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "")
	err := c.Record(context.Background(), "BTC/USDT", "entry", 0.5, nil)
	assert.Error(t, err)
}

func TestQuerySkipsRecordsWithoutImpactScore(t *testing.T) {
	fake := &fakeMemoryService{entries: []memoryEntry{
		{Entity: "BTC/USDT", Content: "a", Metadata: map[string]any{"impact_score": 0.6}},
		{Entity: "BTC/USDT", Content: "b", Metadata: map[string]any{"note": "manual"}},
	}}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	assert.InDelta(t, 0.6, c.AverageImpact(context.Background(), "BTC/USDT"), 1e-9)

	records, err := c.Query(context.Background(), "BTC/USDT", 10)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
