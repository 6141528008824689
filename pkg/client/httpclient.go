package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "medassist/pkg/errors"
	"medassist/pkg/logger"
)

// DefaultTimeout bounds every backend call. There are no retries.
const DefaultTimeout = 30 * time.Second

type HttpClient struct {
	BaseURL    string
	HTTPClient *http.Client
	log        *logger.Logger
}

func NewHttpClient(baseURL string, timeout time.Duration, log *logger.Logger) *HttpClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.Discard()
	}
	return &HttpClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

type Response struct {
	*http.Response
	Body []byte
}

func (r *Response) DecodeJSON(target any) error {
	return json.Unmarshal(r.Body, target)
}

func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) ToString() string {
	return fmt.Sprintf("status=%d body=%s", r.StatusCode, string(r.Body))
}

// Err classifies a non-2xx response. 400 and 422 mean the backend rejected
// the input; every other status is a server error. The backend's own message
// is kept verbatim.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	message := GetErrorMessage(r)
	switch r.StatusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperrors.Validation(message, map[string]any{"upstream_status": r.StatusCode})
	default:
		return apperrors.Server(r.StatusCode, message)
	}
}

func (c *HttpClient) GET(ctx context.Context, path string) (*Response, error) {
	return c.request(ctx, http.MethodGet, path, nil)
}

func (c *HttpClient) POST(ctx context.Context, path string, body any) (*Response, error) {
	return c.request(ctx, http.MethodPost, path, body)
}

func (c *HttpClient) request(ctx context.Context, method, path string, body any) (*Response, error) {
	var reqBody io.Reader

	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, apperrors.Internal("failed to marshal request body", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	return c.do(ctx, method, path, reqBody)
}

func (c *HttpClient) do(ctx context.Context, method, path string, reqBody io.Reader) (*Response, error) {
	operation := method + " " + path

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return nil, apperrors.Internal("failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	c.log.Debug("API request", "method", method, "path", path)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.log.Warn("API request failed",
			"method", method,
			"path", path,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return nil, apperrors.Network(operation, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Network(operation, fmt.Errorf("failed to read response body: %w", err))
	}

	out := &Response{Response: resp, Body: respBody}
	if out.OK() {
		c.log.Debug("API response",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	} else {
		c.log.Warn("API error response",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"body", truncate(string(respBody), 512),
		)
	}
	return out, nil
}

// getJSON and postJSON run a call and decode a 2xx body into target.
func (c *HttpClient) getJSON(ctx context.Context, path string, target any) error {
	resp, err := c.GET(ctx, path)
	if err != nil {
		return err
	}
	return decode(resp, target)
}

func (c *HttpClient) postJSON(ctx context.Context, path string, body, target any) error {
	resp, err := c.POST(ctx, path, body)
	if err != nil {
		return err
	}
	return decode(resp, target)
}

func decode(resp *Response, target any) error {
	if err := resp.Err(); err != nil {
		return err
	}
	if err := resp.DecodeJSON(target); err != nil {
		return apperrors.Server(resp.StatusCode, fmt.Sprintf("malformed response from clinic service: %v", err))
	}
	return nil
}

// GetErrorMessage extracts a human message from an error body. The backend
// answers with {"detail": "..."} or, for schema failures, a list of
// {"loc": [...], "msg": "..."} entries.
func GetErrorMessage(resp *Response) string {
	var errResp struct {
		Detail  json.RawMessage `json:"detail"`
		Error   string          `json:"error"`
		Message string          `json:"message"`
	}
	if err := resp.DecodeJSON(&errResp); err != nil {
		return strings.TrimSpace(truncate(string(resp.Body), 512))
	}

	if len(errResp.Detail) > 0 {
		var detail string
		if err := json.Unmarshal(errResp.Detail, &detail); err == nil {
			return detail
		}
		var items []struct {
			Loc []any  `json:"loc"`
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(errResp.Detail, &items); err == nil && len(items) > 0 {
			msgs := make([]string, 0, len(items))
			for _, item := range items {
				if len(item.Loc) > 0 {
					msgs = append(msgs, fmt.Sprintf("%v: %s", item.Loc[len(item.Loc)-1], item.Msg))
				} else {
					msgs = append(msgs, item.Msg)
				}
			}
			return strings.Join(msgs, "; ")
		}
	}
	if errResp.Message != "" {
		return errResp.Message
	}
	return errResp.Error
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
