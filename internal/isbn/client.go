// Package isbn looks up book metadata by ISBN from an external lookup
// service.
package isbn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned when the lookup service has no record for an ISBN.
var ErrNotFound = errors.New("isbn: not found")

// BookMetadata contains book information returned by the lookup service.
type BookMetadata struct {
	ISBN        string  `json:"isbn"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Publisher   string  `json:"publisher"`
	PublishDate string  `json:"publish_date"`
	Price       float64 `json:"price"`
	CoverURL    string  `json:"cover_url"`
	Description string  `json:"description"`
}

// Client fetches book metadata from the ISBN lookup API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	rateLimiter *rateLimiter
}

type rateLimiter struct {
	mu       sync.Mutex
	lastCall time.Time
	interval time.Duration
}

func newRateLimiter(interval time.Duration) *rateLimiter {
	return &rateLimiter{interval: interval}
}

func (r *rateLimiter) wait() {
	r.mu.Lock()
	defer r.mu.Unlock()

	since := time.Since(r.lastCall)
	if since < r.interval {
		time.Sleep(r.interval - since)
	}
	r.lastCall = time.Now()
}

// NewClient creates a new lookup client with rate limiting.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		rateLimiter: newRateLimiter(time.Second), // 1 request per second
	}
}

// Lookup fetches metadata for a single ISBN. An unknown ISBN yields
// ErrNotFound.
func (c *Client) Lookup(ctx context.Context, isbn string) (*BookMetadata, error) {
	isbn = normalizeISBN(isbn)
	if isbn == "" {
		return nil, fmt.Errorf("invalid ISBN")
	}

	c.rateLimiter.wait()

	url := fmt.Sprintf("%s/getInfo?isbn=%s&appkey=%s", c.baseURL, isbn, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Carrel/1.0 (https://github.com/carrelhq/carrel)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch ISBN data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var envelope lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if envelope.Code != 0 || len(envelope.Data) == 0 {
		return nil, ErrNotFound
	}

	return convertToMetadata(&envelope.Data[0], isbn), nil
}

// BatchResult pairs one ISBN of a batch with its outcome.
type BatchResult struct {
	ISBN     string        `json:"isbn"`
	Metadata *BookMetadata `json:"metadata,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// LookupBatch resolves several ISBNs one at a time, honoring the rate
// limiter between requests. A per-ISBN failure never aborts the batch.
func (c *Client) LookupBatch(ctx context.Context, isbns []string) []BatchResult {
	results := make([]BatchResult, 0, len(isbns))
	for _, isbn := range isbns {
		meta, err := c.Lookup(ctx, isbn)
		if err != nil {
			results = append(results, BatchResult{ISBN: isbn, Error: err.Error()})
			continue
		}
		results = append(results, BatchResult{ISBN: isbn, Metadata: meta})
	}
	return results
}

func convertToMetadata(book *lookupBook, isbn string) *BookMetadata {
	metadata := &BookMetadata{
		ISBN:        isbn,
		Title:       book.BookName,
		Author:      book.Author,
		Publisher:   book.Press,
		PublishDate: book.PressDate,
		Description: book.BookDesc,
	}

	// Prices come back in cents.
	if book.Price > 0 {
		metadata.Price = float64(book.Price) / 100
	}

	// Pictures is a JSON array serialized into a string; use the first entry.
	if book.Pictures != "" {
		var urls []string
		if err := json.Unmarshal([]byte(book.Pictures), &urls); err == nil && len(urls) > 0 {
			metadata.CoverURL = urls[0]
		}
	}

	return metadata
}

// normalizeISBN removes hyphens and spaces from ISBN.
func normalizeISBN(isbn string) string {
	isbn = strings.ReplaceAll(isbn, "-", "")
	isbn = strings.ReplaceAll(isbn, " ", "")
	isbn = strings.TrimSpace(isbn)

	// Basic validation: ISBN-10 or ISBN-13
	if len(isbn) != 10 && len(isbn) != 13 {
		return ""
	}

	return isbn
}

// Lookup service response types (internal)

type lookupResponse struct {
	Code int          `json:"code"`
	Msg  string       `json:"msg"`
	Data []lookupBook `json:"data"`
}

type lookupBook struct {
	ISBN      string `json:"isbn"`
	BookName  string `json:"bookName"`
	Author    string `json:"author"`
	Press     string `json:"press"`
	PressDate string `json:"pressDate"`
	Price     int64  `json:"price"`
	Pictures  string `json:"pictures"`
	BookDesc  string `json:"bookDesc"`
}
