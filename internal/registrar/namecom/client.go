// Package namecom adapts the name.com v4 REST API to registrar.Gateway.
package namecom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"teamdns/internal/credentials"
	"teamdns/internal/registrar"
)

const maxErrorBody = 4 << 10

// Client issues exactly one HTTP request per gateway call. Retries and
// circuit breaking live in registrar decorators.
type Client struct {
	baseURL string
	creds   credentials.Provider
	timeout time.Duration
	http    *http.Client
	logger  *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.timeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		if logger != nil {
			cl.logger = logger
		}
	}
}

// New builds a client against baseURL, e.g. https://api.name.com/v4.
func New(baseURL string, creds credentials.Provider, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("namecom: base url is required")
	}
	if creds == nil {
		return nil, errors.New("namecom: credentials provider is required")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		timeout: 10 * time.Second,
		http:    &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var _ registrar.Gateway = (*Client)(nil)

func (c *Client) ListDomains(ctx context.Context) ([]registrar.Domain, error) {
	var out struct {
		Domains []domainPayload `json:"domains"`
	}
	if err := c.do(ctx, "list_domains", http.MethodGet, "/domains", nil, &out); err != nil {
		return nil, err
	}
	domains := make([]registrar.Domain, 0, len(out.Domains))
	for _, d := range out.Domains {
		domains = append(domains, d.toDomain())
	}
	return domains, nil
}

func (c *Client) GetDomain(ctx context.Context, name string) (*registrar.Domain, error) {
	var out domainPayload
	if err := c.do(ctx, "get_domain", http.MethodGet, domainPath(name), nil, &out); err != nil {
		return nil, err
	}
	d := out.toDomain()
	return &d, nil
}

func (c *Client) ListRecords(ctx context.Context, domain string) ([]registrar.Record, error) {
	var out struct {
		Records []recordPayload `json:"records"`
	}
	if err := c.do(ctx, "list_records", http.MethodGet, domainPath(domain)+"/records", nil, &out); err != nil {
		return nil, err
	}
	records := make([]registrar.Record, 0, len(out.Records))
	for _, r := range out.Records {
		records = append(records, r.toRecord(domain))
	}
	return records, nil
}

func (c *Client) GetRecord(ctx context.Context, domain string, recordID int64) (*registrar.Record, error) {
	var out recordPayload
	if err := c.do(ctx, "get_record", http.MethodGet, recordPath(domain, recordID), nil, &out); err != nil {
		return nil, err
	}
	r := out.toRecord(domain)
	return &r, nil
}

func (c *Client) CreateRecord(ctx context.Context, domain string, in registrar.CreateRecordInput) (*registrar.Record, error) {
	ttl := in.TTL
	if ttl <= 0 {
		ttl = registrar.DefaultTTL
	}
	body := recordWrite{
		Name:       &in.Name,
		Type:       &in.Type,
		Answer:     &in.Content,
		TTL:        &ttl,
		MXPriority: in.Priority,
	}
	var out recordPayload
	if err := c.do(ctx, "create_record", http.MethodPost, domainPath(domain)+"/records", body, &out); err != nil {
		return nil, err
	}
	r := out.toRecord(domain)
	return &r, nil
}

func (c *Client) UpdateRecord(ctx context.Context, domain string, recordID int64, patch registrar.RecordPatch) (*registrar.Record, error) {
	body := recordWrite{
		Answer:     patch.Content,
		TTL:        patch.TTL,
		MXPriority: patch.Priority,
	}
	var out recordPayload
	if err := c.do(ctx, "update_record", http.MethodPut, recordPath(domain, recordID), body, &out); err != nil {
		return nil, err
	}
	r := out.toRecord(domain)
	return &r, nil
}

func (c *Client) DeleteRecord(ctx context.Context, domain string, recordID int64) error {
	return c.do(ctx, "delete_record", http.MethodDelete, recordPath(domain, recordID), nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	creds, err := c.creds.Credentials(ctx)
	if err != nil {
		c.logger.ErrorContext(ctx, "registrar credentials unavailable", "op", op, "error", err)
		return &registrar.Error{Op: op, Message: "credentials unavailable"}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &registrar.Error{Op: op, Message: fmt.Sprintf("encode request: %v", err)}
		}
		reader = bytes.NewReader(data)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &registrar.Error{Op: op, Message: "build request failed"}
	}
	req.Header.Set("Authorization", "Bearer "+creds.APIToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			c.dropCredentials(ctx, op)
		}
		return statusError(op, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if isTimeout(err) {
			return &registrar.Error{Op: op, Timeout: true}
		}
		return &registrar.Error{Op: op, Status: resp.StatusCode, Message: "malformed response body"}
	}
	return nil
}

// invalidator is implemented by caching credential providers.
type invalidator interface {
	Invalidate()
}

// dropCredentials forces the next call to refetch a possibly rotated token.
// The failed call itself is not retried.
func (c *Client) dropCredentials(ctx context.Context, op string) {
	if inv, ok := c.creds.(invalidator); ok {
		inv.Invalidate()
		c.logger.WarnContext(ctx, "registrar rejected credentials, cache invalidated", "op", op)
	}
}

// transportError drops the underlying url.Error text, which echoes the
// request URL.
func transportError(op string, err error) error {
	if isTimeout(err) {
		return &registrar.Error{Op: op, Timeout: true}
	}
	if errors.Is(err, context.Canceled) {
		return &registrar.Error{Op: op, Message: "request canceled"}
	}
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return &registrar.Error{Op: op, Message: fmt.Sprintf("transport failure: %v", uerr.Err)}
	}
	return &registrar.Error{Op: op, Message: "transport failure"}
}

func statusError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Message string `json:"message"`
		Details string `json:"details"`
	}
	msg := http.StatusText(resp.StatusCode)
	if json.Unmarshal(raw, &payload) == nil && payload.Message != "" {
		msg = payload.Message
		if payload.Details != "" {
			msg += ": " + payload.Details
		}
	}
	return &registrar.Error{Op: op, Status: resp.StatusCode, Message: msg}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

func domainPath(name string) string {
	return "/domains/" + url.PathEscape(strings.ToLower(name))
}

func recordPath(domain string, id int64) string {
	return domainPath(domain) + "/records/" + strconv.FormatInt(id, 10)
}
