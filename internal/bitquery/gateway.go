// Package bitquery provides the transport primitives for the Bitquery
// streaming GraphQL API: a one-shot query gateway and a long-running
// subscription consumer.
package bitquery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Executor performs a single GraphQL request against the upstream.
// Implementations never retry; retry policy belongs to the caller.
type Executor interface {
	Execute(ctx context.Context, query string, variables map[string]interface{}) (*QueryResult, error)
}

// QueryError is one upstream-reported error entry.
type QueryError struct {
	Message string `json:"message"`
}

// QueryResult is the decoded response of a single query. A response that
// carries errors is still a successful call; callers must check Errors
// before trusting Data.
type QueryResult struct {
	Data   json.RawMessage `json:"data"`
	Errors []QueryError    `json:"errors"`
}

// HasErrors reports whether the upstream attached error entries.
func (r *QueryResult) HasErrors() bool {
	return r == nil || len(r.Errors) > 0
}

// ErrorMessage joins upstream error messages for logging.
func (r *QueryResult) ErrorMessage() string {
	if r == nil || len(r.Errors) == 0 {
		return ""
	}
	msg := r.Errors[0].Message
	for _, e := range r.Errors[1:] {
		msg += "; " + e.Message
	}
	return msg
}

// Client executes one-shot GraphQL queries over a websocket connection:
// dial, send the request, read exactly one response, close.
type Client struct {
	endpoint string
	token    string
	dialer   *websocket.Dialer
	timeout  time.Duration
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets the read/write deadline for a single call.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithDialer sets a custom websocket dialer.
func WithDialer(d *websocket.Dialer) ClientOption {
	return func(c *Client) {
		c.dialer = d
	}
}

// NewClient creates a query gateway for the given endpoint. The token is
// sent as a bearer credential on every call.
func NewClient(endpoint, token string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint: endpoint,
		token:    token,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Executor = (*Client)(nil)

type queryRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

// Execute opens a connection, sends one request and reads one response.
// Transport and protocol failures are returned as errors; an
// error-carrying or malformed response body is returned as a result with
// Errors populated.
func (c *Client) Execute(ctx context.Context, query string, variables map[string]interface{}) (*QueryResult, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.endpoint, authHeaders(c.token))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.endpoint, err)
	}
	defer conn.Close()

	if variables == nil {
		variables = map[string]interface{}{}
	}

	conn.SetWriteDeadline(time.Now().Add(c.timeout))
	if err := conn.WriteJSON(queryRequest{Query: query, Variables: variables}); err != nil {
		return nil, fmt.Errorf("write query: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(c.timeout))
	_, message, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var result QueryResult
	if err := json.Unmarshal(message, &result); err != nil {
		// Not a transport failure: surface as an error-carrying result.
		return &QueryResult{
			Errors: []QueryError{{Message: fmt.Sprintf("malformed response: %v", err)}},
		}, nil
	}

	return &result, nil
}

// authHeaders builds the headers every upstream call carries.
func authHeaders(token string) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
