package lookup

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const DefaultBaseURL = "https://localhost:7011"

// Client talks to the directory service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
	retries    int
	retryBase  time.Duration
}

// ClientOptions configures a Client.
type ClientOptions struct {
	Timeout time.Duration
	// InsecureTLS disables certificate verification; the directory is
	// commonly served with a self-signed development certificate.
	InsecureTLS bool
	Logger      *slog.Logger
	// Retries is how many extra attempts a transient failure gets.
	Retries   int
	RetryBase time.Duration
}

func NewClient(baseURL string, opts ClientOptions) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = 500 * time.Millisecond
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		log:       opts.Logger,
		retries:   max(opts.Retries, 0),
		retryBase: opts.RetryBase,
	}
}

type facultyRow struct {
	Name string `json:"nameFaculty"`
	ID   int    `json:"idFaculty"`
}

// The directory spells this field with a trailing "c".
type degreeRow struct {
	Name string `json:"nameEducationalDegreec"`
	ID   int    `json:"idEducationalDegree"`
}

type studyFormRow struct {
	Name string `json:"nameStudyForm"`
	ID   int    `json:"idStudyForm"`
}

type groupRow struct {
	Code         string `json:"code"`
	ID           int    `json:"id"`
	DepartmentID int    `json:"departmentId"`
}

var endpoints = map[Category]string{
	Faculty:   "/api/Faculty",
	Degree:    "/api/EducationalDegree",
	StudyForm: "/api/StudyForm",
	Group:     "/api/Group?sortOrder=0",
}

// Resolve fetches and decodes the table for one category.
func (c *Client) Resolve(ctx context.Context, cat Category) (*Map, error) {
	ctx, span := otel.Tracer("eduparse/lookup").Start(ctx, "lookup.resolve")
	defer span.End()
	span.SetAttributes(attribute.String("lookup.category", string(cat)))

	m, err := c.resolve(ctx, cat)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &UnavailableError{Category: cat, Err: err}
	}
	span.SetAttributes(attribute.Int("lookup.entries", m.Len()))
	return m, nil
}

func (c *Client) resolve(ctx context.Context, cat Category) (*Map, error) {
	path, ok := endpoints[cat]
	if !ok {
		return nil, fmt.Errorf("unknown category %q", cat)
	}

	start := time.Now()
	body, err := c.getWithRetry(ctx, cat, path)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	entries := make(map[string]Entry)
	dec := json.NewDecoder(body)
	switch cat {
	case Faculty:
		var rows []facultyRow
		if err := dec.Decode(&rows); err != nil {
			return nil, fmt.Errorf("decode faculties: %w", err)
		}
		for _, r := range rows {
			entries[r.Name] = Entry{ID: r.ID}
		}
	case Degree:
		var rows []degreeRow
		if err := dec.Decode(&rows); err != nil {
			return nil, fmt.Errorf("decode degrees: %w", err)
		}
		for _, r := range rows {
			entries[r.Name] = Entry{ID: r.ID}
		}
	case StudyForm:
		var rows []studyFormRow
		if err := dec.Decode(&rows); err != nil {
			return nil, fmt.Errorf("decode study forms: %w", err)
		}
		for _, r := range rows {
			entries[r.Name] = Entry{ID: r.ID}
		}
	case Group:
		var rows []groupRow
		if err := dec.Decode(&rows); err != nil {
			return nil, fmt.Errorf("decode groups: %w", err)
		}
		for _, r := range rows {
			entries[r.Code] = Entry{ID: r.ID, DepartmentID: r.DepartmentID}
		}
	}

	c.log.Debug("lookup fetched",
		"category", string(cat),
		"entries", len(entries),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return NewMap(cat, entries), nil
}

func (c *Client) getWithRetry(ctx context.Context, cat Category, path string) (io.ReadCloser, error) {
	for attempt := 0; ; attempt++ {
		body, err := c.get(ctx, path)
		if err == nil || !isTransient(err) || attempt >= c.retries {
			return body, err
		}
		wait := backoff(c.retryBase, attempt)
		c.log.Warn("lookup retry",
			"category", string(cat),
			"attempt", attempt+1,
			"wait_ms", wait.Milliseconds(),
			"error", err,
		)
		if err := sleepCtx(ctx, wait); err != nil {
			return nil, err
		}
	}
}

func (c *Client) get(ctx context.Context, path string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("get %s: %w", path, err)
		}
		return nil, &transientError{Err: fmt.Errorf("get %s: %w", path, err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := fmt.Errorf("get %s: status %d: %s", path, resp.StatusCode, string(respBody))
		if transientStatus(resp.StatusCode) {
			return nil, &transientError{Err: err}
		}
		return nil, err
	}
	return resp.Body, nil
}
