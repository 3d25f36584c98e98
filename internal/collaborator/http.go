// Package collaborator provides thin HTTP-backed adapters for the
// pipeline's external services (the compound registry, the
// name-resolution service, the document search/fetch source, and the LLM).
// None of these are required: every consumer (oracle.AO, resolve.NR,
// internal/expansion, internal/align, internal/pipeline) accepts its
// collaborator as a plain interface and degrades gracefully when the field
// is left nil. Config wires a Client in only when an endpoint is actually
// configured (internal/config.ResolverConfig), the same opt-in shape as
// the optional Redis/Kafka tiers.
package collaborator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/expansion"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/oracle"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/pkg/errors"
)

// Config holds the endpoint and credentials for one HTTP collaborator.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client is a generic JSON-over-HTTP collaborator. It implements
// oracle.Registry, resolve.Resolver, align.LLM, and the expansion package's
// Fetcher/Renderer/Extractor interfaces, each against its own path under
// BaseURL, so one configured endpoint can serve every external call the
// pipeline makes.
type Client struct {
	cfg Config
	hc  *http.Client
}

// New constructs a Client. A zero-value Timeout defaults to 30s.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{cfg: cfg, hc: &http.Client{Timeout: timeout}}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, errors.CodeInternal, "encode collaborator request")
		}
		reader = bytes.NewReader(raw)
	}

	full := c.cfg.BaseURL + path
	if len(query) > 0 {
		full += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, full, reader)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "build collaborator request")
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return &oracle.TransientError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &oracle.TransientError{Err: err}
	}
	if resp.StatusCode >= 500 {
		return &oracle.TransientError{Err: fmt.Errorf("collaborator %s returned %d: %s", path, resp.StatusCode, raw)}
	}
	if resp.StatusCode >= 400 {
		return errors.New(errors.CodeExternalService, fmt.Sprintf("collaborator %s returned %d", path, resp.StatusCode)).WithDetail(string(raw))
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrap(err, errors.CodeExternalService, "decode collaborator response")
	}
	return nil
}

// LookupByKey implements oracle.Registry.
func (c *Client) LookupByKey(ctx context.Context, key string) (bool, error) {
	var out struct {
		Available bool `json:"available"`
	}
	err := c.do(ctx, http.MethodGet, "/v1/compounds/lookup", url.Values{"key": {key}}, nil, &out)
	return out.Available, err
}

// LookupByName implements oracle.Registry.
func (c *Client) LookupByName(ctx context.Context, name string) (bool, error) {
	var out struct {
		Available bool `json:"available"`
	}
	err := c.do(ctx, http.MethodGet, "/v1/compounds/lookup", url.Values{"name": {name}}, nil, &out)
	return out.Available, err
}

// Resolve implements resolve.Resolver.
func (c *Client) Resolve(ctx context.Context, name string) (string, error) {
	var out struct {
		Key string `json:"key"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/resolve", url.Values{"name": {name}}, nil, &out); err != nil {
		return "", err
	}
	return out.Key, nil
}

// Complete implements align.LLM and internal/pipeline's filtration LLM.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	var out struct {
		Text string `json:"text"`
	}
	req := struct {
		Prompt string `json:"prompt"`
	}{Prompt: prompt}
	if err := c.do(ctx, http.MethodPost, "/v1/complete", nil, req, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

// Fetch implements expansion.Fetcher: acquires up to n documents for
// substance under mode from the configured document search endpoint.
func (c *Client) Fetch(ctx context.Context, substance string, n int, mode expansion.RetrievalMode) ([]expansion.FetchedDoc, error) {
	var out struct {
		Documents []struct {
			ID   string `json:"id"`
			Data []byte `json:"data"`
		} `json:"documents"`
	}
	q := url.Values{
		"substance": {substance},
		"n":         {fmt.Sprintf("%d", n)},
		"mode":      {string(mode)},
	}
	if err := c.do(ctx, http.MethodGet, "/v1/documents", q, nil, &out); err != nil {
		return nil, err
	}
	docs := make([]expansion.FetchedDoc, 0, len(out.Documents))
	for _, d := range out.Documents {
		docs = append(docs, expansion.FetchedDoc{ID: d.ID, Data: d.Data})
	}
	return docs, nil
}

// Render implements expansion.Renderer: PDF/raw-bytes to plain text.
func (c *Client) Render(ctx context.Context, doc expansion.FetchedDoc) (string, error) {
	var out struct {
		Text string `json:"text"`
	}
	req := struct {
		ID   string `json:"id"`
		Data []byte `json:"data"`
	}{ID: doc.ID, Data: doc.Data}
	if err := c.do(ctx, http.MethodPost, "/v1/render", nil, req, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

// SingleSource adapts a Client to expansion.SourceFetcher so a dedicated
// patent-database or paper-search endpoint can be wired into a
// CompositeFetcher. The endpoint serves exactly one source, so no
// retrieval mode is sent.
type SingleSource struct {
	Client *Client
}

func (s SingleSource) Fetch(ctx context.Context, substance string, n int) ([]expansion.FetchedDoc, error) {
	return s.Client.Fetch(ctx, substance, n, "")
}

// ExtractReactions implements expansion.Extractor (and is reused directly
// as the initial-acquisition extractor in internal/pipeline).
func (c *Client) ExtractReactions(ctx context.Context, text, target string) (string, error) {
	var out struct {
		Block string `json:"block"`
	}
	req := struct {
		Text   string `json:"text"`
		Target string `json:"target"`
	}{Text: text, Target: target}
	if err := c.do(ctx, http.MethodPost, "/v1/extract", nil, req, &out); err != nil {
		return "", err
	}
	return out.Block, nil
}
