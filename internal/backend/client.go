// Package backend is the HTTP client for the student-records REST API.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/corpix/uarand"
	"github.com/klauspost/compress/gzip"

	"github.com/garyellow/lnmu-portal/internal/config"
	domerrors "github.com/garyellow/lnmu-portal/internal/errors"
	"github.com/garyellow/lnmu-portal/internal/student"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 32 << 20

// Endpoint labels used for metrics and logs.
const (
	EndpointSearch   = "search"
	EndpointYears    = "years"
	EndpointColleges = "colleges"
	EndpointCourses  = "courses"
	EndpointStudents = "students"
	EndpointStudent  = "student"
	EndpointReport   = "report"
)

// Recorder receives one observation per finished request.
type Recorder interface {
	RecordBackendRequest(endpoint, status string, duration float64)
}

// Options configures a Client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	Recorder  Recorder

	// Transport overrides the default transport, mainly for tests.
	Transport http.RoundTripper
}

// Client talks to the records backend. It never retries; callers decide what
// a failure means for their state.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	userAgent  string
	recorder   Recorder
}

// NewClient creates a backend client.
func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(opts.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend url %q must be absolute: %w", opts.BaseURL, domerrors.ErrInvalidInput)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = config.BackendRequest
	}

	transport := opts.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		}
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = uarand.GetRandom()
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout, Transport: transport},
		baseURL:    base,
		userAgent:  userAgent,
		recorder:   opts.Recorder,
	}, nil
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Search runs a free-text query.
func (c *Client) Search(ctx context.Context, query string, page, pageSize int) (List, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("page_size", strconv.Itoa(pageSize))

	body, err := c.get(ctx, EndpointSearch, []string{"search"}, params)
	if err != nil {
		return List{}, err
	}
	return decodeList(body)
}

// Years lists the enrollment years.
func (c *Client) Years(ctx context.Context) ([]string, error) {
	body, err := c.get(ctx, EndpointYears, []string{"years"}, nil)
	if err != nil {
		return nil, err
	}
	return decodeScalars(body)
}

// Colleges lists the colleges with students enrolled in year.
func (c *Client) Colleges(ctx context.Context, year string) ([]string, error) {
	params := url.Values{}
	params.Set("year", year)

	body, err := c.get(ctx, EndpointColleges, []string{"colleges"}, params)
	if err != nil {
		return nil, err
	}
	return decodeScalars(body)
}

// Courses lists the courses offered by college in year.
func (c *Client) Courses(ctx context.Context, year, college string) ([]string, error) {
	params := url.Values{}
	params.Set("year", year)
	params.Set("college", college)

	body, err := c.get(ctx, EndpointCourses, []string{"courses"}, params)
	if err != nil {
		return nil, err
	}
	return decodeScalars(body)
}

// StudentQuery selects one page of the cascading listing.
type StudentQuery struct {
	Year     string
	College  string
	Course   string
	Page     int
	PageSize int
}

// Students fetches one page of students for a fully chosen filter.
func (c *Client) Students(ctx context.Context, q StudentQuery) (List, error) {
	params := url.Values{}
	params.Set("year", q.Year)
	params.Set("college", q.College)
	params.Set("course", q.Course)
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("page_size", strconv.Itoa(q.PageSize))

	body, err := c.get(ctx, EndpointStudents, []string{"students"}, params)
	if err != nil {
		return List{}, err
	}
	return decodeList(body)
}

// Student fetches a full profile by roll number.
func (c *Client) Student(ctx context.Context, roll string) (*student.Profile, error) {
	roll = strings.TrimSpace(roll)
	if roll == "" {
		return nil, domerrors.NewValidationError("roll", "must not be empty")
	}

	body, err := c.get(ctx, EndpointStudent, []string{"student", roll}, nil)
	if err != nil {
		return nil, err
	}
	return decodeProfile(body)
}

// Report downloads the server-rendered report for roll.
func (c *Client) Report(ctx context.Context, roll string) ([]byte, error) {
	roll = strings.TrimSpace(roll)
	if roll == "" {
		return nil, domerrors.NewValidationError("roll", "must not be empty")
	}
	return c.get(ctx, EndpointReport, []string{"report", roll}, nil)
}

// get performs a GET against the backend and returns the decoded body.
func (c *Client) get(ctx context.Context, endpoint string, path []string, params url.Values) ([]byte, error) {
	target := c.baseURL.JoinPath(path...)
	if len(params) > 0 {
		target.RawQuery = params.Encode()
	}
	rawURL := target.String()

	start := time.Now()
	body, err := c.do(ctx, rawURL)
	c.record(endpoint, statusOf(err), time.Since(start))
	return body, err
}

func (c *Client) do(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			err = fmt.Errorf("%w: %w", domerrors.ErrTimeout, err)
		}
		return nil, domerrors.NewBackendError(rawURL, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusNotFound {
			return nil, domerrors.NewBackendError(rawURL, resp.StatusCode, domerrors.ErrNotFound)
		}
		return nil, domerrors.NewBackendError(rawURL, resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var reader io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, domerrors.NewBackendError(rawURL, resp.StatusCode, fmt.Errorf("failed to decompress gzip: %w", err))
		}
		defer func() { _ = gzipReader.Close() }()
		reader = gzipReader
	}

	body, err := io.ReadAll(io.LimitReader(reader, maxBodySize))
	if err != nil {
		if isTimeout(ctx, err) {
			err = fmt.Errorf("%w: %w", domerrors.ErrTimeout, err)
		}
		return nil, domerrors.NewBackendError(rawURL, resp.StatusCode, fmt.Errorf("read body: %w", err))
	}
	return body, nil
}

func (c *Client) record(endpoint, status string, d time.Duration) {
	if c.recorder != nil {
		c.recorder.RecordBackendRequest(endpoint, status, d.Seconds())
	}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// statusOf maps a request outcome to a metrics label.
func statusOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domerrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, domerrors.ErrTimeout):
		return "timeout"
	default:
		return "error"
	}
}
