package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/iota-uz/organi-flow/pkg/httpapi"
)

const defaultBaseURL = "http://localhost:3200"

type orgAPIClient struct {
	baseURL         *url.URL
	httpClient      *http.Client
	requestIDHeader string
}

func newOrgAPIClient(baseURL string, timeout time.Duration) (*orgAPIClient, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, withCode(exitUsage, fmt.Errorf("invalid --base-url: %q", baseURL))
	}
	return &orgAPIClient{
		baseURL:         u,
		httpClient:      &http.Client{Timeout: timeout},
		requestIDHeader: "X-Request-ID",
	}, nil
}

type remoteError struct {
	Status   int
	Envelope httpapi.ErrorEnvelope
}

func (e *remoteError) Error() string {
	return fmt.Sprintf("server rejected request: status=%d code=%s message=%s", e.Status, e.Envelope.Code, e.Envelope.Message)
}

// do sends body (if any) and returns the raw response body of a 2xx answer.
// Envelope errors from the server come back as *remoteError; 400s are
// validation failures, anything else a remote failure.
func (c *orgAPIClient) do(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, http.Header, error) {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, nil, withCode(exitRemote, errors.Wrap(err, "http request"))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(c.requestIDHeader, uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, withCode(exitRemote, errors.Wrap(err, "http do"))
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, withCode(exitRemote, errors.Wrap(err, "http read"))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var env httpapi.ErrorEnvelope
		if err := json.Unmarshal(respBody, &env); err == nil && strings.TrimSpace(env.Code) != "" {
			code := exitRemote
			if resp.StatusCode == http.StatusBadRequest {
				code = exitValidation
			}
			return nil, nil, withCode(code, &remoteError{Status: resp.StatusCode, Envelope: env})
		}
		return nil, nil, withCode(exitRemote, errors.Errorf("http status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(respBody))))
	}
	return respBody, resp.Header, nil
}
