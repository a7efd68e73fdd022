// Package remote talks to the task sync endpoint.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Makepad-fr/tada/internal/model"
)

const (
	todosPath      = "/api/todos"
	defaultTimeout = 10 * time.Second
	maxErrBody     = 512
)

var (
	// ErrUnavailable wraps transport failures: no route, refused, timed out.
	ErrUnavailable = errors.New("remote unavailable")
	// ErrStatus is matched by every *StatusError.
	ErrStatus = errors.New("unexpected status")
	// ErrNotConfigured is returned when no endpoint URL is set.
	ErrNotConfigured = errors.New("remote endpoint not configured")
)

// StatusError is a non-2xx answer from the endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote: status %d", e.Code)
	}
	return fmt.Sprintf("remote: status %d: %s", e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrStatus }

// Options configure a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *log.Logger
}

// Client fetches and pushes whole task lists keyed by sync identity.
type Client struct {
	base    string
	timeout time.Duration
	http    *http.Client
	log     *log.Logger
}

func NewClient(opts Options) *Client {
	c := &Client{
		base:    strings.TrimRight(opts.BaseURL, "/"),
		timeout: opts.Timeout,
		http:    opts.HTTPClient,
		log:     opts.Logger,
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.log == nil {
		c.log = log.Default()
	}
	return c
}

// Fetch returns the list stored under userID. An unknown id yields an empty
// list. Elements the endpoint returns without an id are dropped.
func (c *Client) Fetch(ctx context.Context, userID string) ([]model.Task, error) {
	if c.base == "" {
		return nil, ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.base + todosPath + "?userId=" + url.QueryEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	tasks, dropped, err := model.DecodeList(body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", userID, err)
	}
	if dropped > 0 {
		c.log.Warn("dropped malformed tasks", "user", userID, "count", dropped)
	}
	return tasks, nil
}

// Push replaces the list stored under userID.
func (c *Client) Push(ctx context.Context, userID string, tasks []model.Task) error {
	if c.base == "" {
		return ErrNotConfigured
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	payload, err := json.Marshal(struct {
		UserID string       `json:"userId"`
		Todos  []model.Task `json:"todos"`
	}{userID, tasks})
	if err != nil {
		return fmt.Errorf("encode push: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+todosPath, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	_, err = c.do(req)
	return err
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > maxErrBody {
			msg = msg[:maxErrBody]
		}
		return nil, &StatusError{Code: resp.StatusCode, Body: msg}
	}
	return body, nil
}
