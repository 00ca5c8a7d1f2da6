package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	fetchCharLimit   = 1000
	fetchParallelism = 8
)

type fetchArgs struct {
	URLs []string `json:"urls" jsonschema_description:"URLs to download; each one is fetched independently"`
}

// FetchTool downloads web pages. Every URL is isolated: a failing one only
// produces a "not available" entry for itself.
type FetchTool struct {
	client  *http.Client
	timeout time.Duration
}

func NewFetchTool(client *http.Client, timeout time.Duration) *FetchTool {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &FetchTool{client: client, timeout: timeout}
}

func (f *FetchTool) Name() string {
	return "fetch"
}

func (f *FetchTool) Description() string {
	return fmt.Sprintf("Download the given URLs. Returns a JSON object keyed by URL with the first %d characters of each page, or a 'not available' marker.", fetchCharLimit)
}

func (f *FetchTool) Parameters() map[string]interface{} {
	return schemaOf(&fetchArgs{})
}

func (f *FetchTool) Mutating() bool {
	return false
}

func (f *FetchTool) Execute(ctx context.Context, call Call) (string, error) {
	var args fetchArgs
	if err := decodeArgs(call.Args, &args); err != nil {
		return "", err
	}
	if len(args.URLs) == 0 {
		return "", fmt.Errorf("urls must not be empty")
	}

	results := f.FetchAll(ctx, args.URLs, call.Progress)
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode results: %w", err)
	}
	return string(data), nil
}

// FetchAll downloads every URL in parallel and returns one entry per URL.
func (f *FetchTool) FetchAll(ctx context.Context, urls []string, progress func(string)) map[string]string {
	if progress == nil {
		progress = func(string) {}
	}
	results := make(map[string]string, len(urls))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(fetchParallelism)
	for _, url := range urls {
		g.Go(func() error {
			body, ok := f.fetchOne(ctx, url)
			if ok {
				progress(fmt.Sprintf("Downloaded %s", url))
			} else {
				progress(fmt.Sprintf("not available %s", url))
			}
			mu.Lock()
			results[url] = body
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (f *FetchTool) fetchOne(ctx context.Context, url string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Sprintf("not available (%v)", err), false
	}
	req.Header.Set("User-Agent", "swi-fetch/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Sprintf("not available (%v)", err), false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("not available (status code %d)", resp.StatusCode), false
	}

	// A rune is at most 4 bytes.
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4*fetchCharLimit))
	if err != nil {
		return fmt.Sprintf("not available (%v)", err), false
	}
	return truncateRunes(string(data), fetchCharLimit), true
}
