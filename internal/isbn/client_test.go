package isbn

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: 5 * time.Second},
		baseURL:     baseURL,
		apiKey:      "test-key",
		rateLimiter: newRateLimiter(0), // No rate limiting for tests
	}
}

func TestNormalizeISBN(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"978-0-13-468599-1", "9780134685991"},
		{"0-13-468599-6", "0134685996"},
		{"978 0 13 468599 1", "9780134685991"},
		{"9780134685991", "9780134685991"},
		{"123", ""},            // Too short
		{"12345678901234", ""}, // Too long
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeISBN(tt.input))
		})
	}
}

func TestLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "9780134685991", r.URL.Query().Get("isbn"))
		assert.Equal(t, "test-key", r.URL.Query().Get("appkey"))

		response := lookupResponse{
			Code: 0,
			Data: []lookupBook{{
				ISBN:      "9780134685991",
				BookName:  "Effective Java",
				Author:    "Joshua Bloch",
				Press:     "Addison-Wesley",
				PressDate: "2018-01-06",
				Price:     5499,
				Pictures:  `["https://covers.example.com/ej3.jpg"]`,
				BookDesc:  "Third edition.",
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	metadata, err := client.Lookup(context.Background(), "978-0-13-468599-1")
	require.NoError(t, err)

	assert.Equal(t, "Effective Java", metadata.Title)
	assert.Equal(t, "Joshua Bloch", metadata.Author)
	assert.Equal(t, "Addison-Wesley", metadata.Publisher)
	assert.Equal(t, 54.99, metadata.Price)
	assert.Equal(t, "https://covers.example.com/ej3.jpg", metadata.CoverURL)
}

func TestLookup_UnknownISBN(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response := lookupResponse{Code: 1, Msg: "no record"}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Lookup(context.Background(), "9780134685991")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookup_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Lookup(context.Background(), "9780134685991")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestLookup_InvalidISBN(t *testing.T) {
	client := NewClient("https://api.example.com", "")
	_, err := client.Lookup(context.Background(), "invalid")
	assert.Error(t, err)
}

func TestLookupBatch_CollectsPerISBNResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("isbn") == "9780134685991" {
			response := lookupResponse{Code: 0, Data: []lookupBook{{BookName: "Effective Java"}}}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(response)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	results := client.LookupBatch(context.Background(), []string{"9780134685991", "0000000000"})
	require.Len(t, results, 2)

	require.NotNil(t, results[0].Metadata)
	assert.Equal(t, "Effective Java", results[0].Metadata.Title)
	assert.Empty(t, results[0].Error)

	assert.Nil(t, results[1].Metadata)
	assert.NotEmpty(t, results[1].Error)
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(50 * time.Millisecond)

	start := time.Now()
	rl.wait()
	rl.wait()
	elapsed := time.Since(start)

	// Second call should have waited at least 50ms
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
}
