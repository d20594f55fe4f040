// Package download fetches raw collections from the pretalx REST API and
// stores them unmodified for the transform step.
package download

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/europython/programapi/internal/publish"
	"github.com/europython/programapi/internal/raw"
)

// ErrNotFound is returned when the API answers 404 for a resource.
var ErrNotFound = errors.New("resource not found")

// Retry defaults used by NewClient.
const (
	DefaultRetries          = 3
	DefaultRetryBackoff     = 500 * time.Millisecond
	DefaultBreakerThreshold = 5
)

// Client talks to the pretalx API for a single event.
type Client struct {
	BaseURL  string
	Event    string
	Token    string
	PageSize int
	HTTP     *http.Client

	// Retries is the number of extra attempts for transient failures.
	Retries      int
	RetryBackoff time.Duration
	// Breaker, when set, aborts all requests after repeated failures.
	Breaker *CircuitBreaker
}

// NewClient returns a Client with a timeout-bound HTTP client and the
// default retry policy.
func NewClient(baseURL, event, token string, pageSize int, timeout time.Duration) *Client {
	return &Client{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		Event:        event,
		Token:        token,
		PageSize:     pageSize,
		HTTP:         &http.Client{Timeout: timeout},
		Retries:      DefaultRetries,
		RetryBackoff: DefaultRetryBackoff,
		Breaker:      NewCircuitBreaker(DefaultBreakerThreshold),
	}
}

type page struct {
	Next    *string           `json:"next"`
	Results []json.RawMessage `json:"results"`
}

func (c *Client) resourceURL(path string) string {
	return c.BaseURL + "/" + url.PathEscape(c.Event) + "/" + path
}

// List fetches every record of a paginated resource by following "next"
// links until the last page.
func (c *Client) List(ctx context.Context, resource string) ([]json.RawMessage, error) {
	next := c.resourceURL(resource + "/")
	if c.PageSize > 0 {
		next += "?limit=" + strconv.Itoa(c.PageSize)
	}

	var all []json.RawMessage
	seen := make(map[string]bool)
	for next != "" {
		if seen[next] {
			return nil, fmt.Errorf("%s: pagination loop at %s", resource, next)
		}
		seen[next] = true

		var p page
		if err := c.getWithRetry(ctx, next, &p); err != nil {
			return nil, fmt.Errorf("%s: %w", resource, err)
		}
		all = append(all, p.Results...)

		next = ""
		if p.Next != nil {
			next = *p.Next
		}
	}
	if all == nil {
		all = []json.RawMessage{}
	}
	return all, nil
}

// Schedule fetches the latest released schedule.
func (c *Client) Schedule(ctx context.Context) (json.RawMessage, error) {
	var doc json.RawMessage
	if err := c.getWithRetry(ctx, c.resourceURL("schedules/latest/"), &doc); err != nil {
		return nil, fmt.Errorf("schedule: %w", err)
	}
	return doc, nil
}

func (c *Client) get(ctx context.Context, u string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Token "+c.Token)
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{URL: u, Code: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", u, err)
	}
	return nil
}

// Result describes one downloaded resource.
type Result struct {
	Resource string
	Path     string
	// Records is the number of records; 0 for the schedule document.
	Records int
	// Skipped is set when the resource was not available.
	Skipped bool
}

// Download fetches submissions, speakers and the schedule concurrently and
// writes each to <dir>/<resource>_latest.json. A missing schedule is
// skipped; any other failure aborts without replacing existing files of
// resources that had not finished.
func Download(ctx context.Context, c *Client, dir string) ([]Result, error) {
	var (
		mu      sync.Mutex
		results []Result
	)
	record := func(r Result) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, r)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, resource := range []string{raw.ResourceSubmissions, raw.ResourceSpeakers} {
		g.Go(func() error {
			records, err := c.List(ctx, resource)
			if err != nil {
				return err
			}
			path := raw.Path(dir, resource)
			if err := writeJSON(path, records); err != nil {
				return fmt.Errorf("%s: %w", resource, err)
			}
			record(Result{Resource: resource, Path: path, Records: len(records)})
			return nil
		})
	}
	g.Go(func() error {
		doc, err := c.Schedule(ctx)
		if errors.Is(err, ErrNotFound) {
			record(Result{Resource: raw.ResourceSchedule, Skipped: true})
			return nil
		}
		if err != nil {
			return err
		}
		path := raw.Path(dir, raw.ResourceSchedule)
		if err := writeJSON(path, doc); err != nil {
			return fmt.Errorf("schedule: %w", err)
		}
		record(Result{Resource: raw.ResourceSchedule, Path: path})
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortResults(results)
	return results, nil
}

func writeJSON(path string, v any) error {
	data, err := publish.Encode(v)
	if err != nil {
		return fmt.Errorf("encoding: %w", err)
	}
	return publish.WriteFileAtomic(path, data, 0644)
}

func sortResults(results []Result) {
	order := map[string]int{raw.ResourceSubmissions: 0, raw.ResourceSpeakers: 1, raw.ResourceSchedule: 2}
	sort.Slice(results, func(i, j int) bool {
		return order[results[i].Resource] < order[results[j].Resource]
	})
}
