package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNotFound maps a collaborator 404. It is a domain answer, not a
// transport failure, and is never retried.
var ErrNotFound = errors.New("not found")

// StatusError is a non-2xx collaborator reply that is not retryable.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("collaborator status %d: %s", e.Code, e.Body)
}

// base is the bounded-retry synchronous client every collaborator wrapper
// builds on: fixed timeout per attempt, retry on transport error or 5xx
// with increasing backoff, everything else surfaced immediately.
type base struct {
	url     string
	http    *http.Client
	retries int
}

func newBase(url string, timeout time.Duration, retries int) base {
	if retries <= 0 {
		retries = 1
	}
	return base{
		url:     url,
		http:    &http.Client{Timeout: timeout},
		retries: retries,
	}
}

func (b base) do(ctx context.Context, method, path string, headers map[string]string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return err
		}
	}

	var lastErr error
	for attempt := 1; attempt <= b.retries; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(time.Duration(attempt-1) * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, b.url+path, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := b.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode >= 500:
			lastErr = &StatusError{Code: resp.StatusCode, Body: string(data)}
			continue
		case resp.StatusCode == http.StatusNotFound:
			return ErrNotFound
		case resp.StatusCode >= 400:
			return &StatusError{Code: resp.StatusCode, Body: string(data)}
		}

		if out != nil {
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("decode %s %s: %w", method, path, err)
			}
		}
		return nil
	}
	return fmt.Errorf("%s %s after %d attempts: %w", method, path, b.retries, lastErr)
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}
