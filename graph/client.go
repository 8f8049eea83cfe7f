package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"liquidator/observability"
)

// Client issues GraphQL queries against one subgraph endpoint with bounded
// retries. Responses decode into caller-supplied result structs.
type Client struct {
	url     string
	http    *http.Client
	retries int
	metrics *observability.GraphPollerMetrics
}

// NewClient builds a client for the endpoint. timeout bounds each attempt,
// retries the number of additional attempts after a failure.
func NewClient(url string, timeout time.Duration, retries int) *Client {
	if retries < 0 {
		retries = 0
	}
	return &Client{
		url:     url,
		http:    &http.Client{Timeout: timeout},
		retries: retries,
		metrics: observability.GraphMetrics(),
	}
}

type graphRequest struct {
	Query string `json:"query"`
}

type graphResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Query runs one GraphQL operation and decodes the data payload into out.
// Transient failures are retried with linear backoff; GraphQL-level errors
// are terminal for the attempt but retried the same way since subgraph
// indexers surface transient state through them.
func (c *Client) Query(ctx context.Context, operation, query string, out any) error {
	start := time.Now()
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
		lastErr = c.query(ctx, query, out)
		if lastErr == nil {
			break
		}
	}
	c.metrics.ObserveQuery(operation, lastErr, time.Since(start))
	if lastErr != nil {
		return fmt.Errorf("graph: %s query failed: %w", operation, lastErr)
	}
	return nil
}

func (c *Client) query(ctx context.Context, query string, out any) error {
	body, err := json.Marshal(graphRequest{Query: query})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var decoded graphResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return err
	}
	if len(decoded.Errors) > 0 {
		return fmt.Errorf("graphql error: %s", decoded.Errors[0].Message)
	}
	if decoded.Data == nil {
		return fmt.Errorf("empty data payload")
	}
	return json.Unmarshal(decoded.Data, out)
}
