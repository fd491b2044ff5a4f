// Copyright (c) The agui-client-go authors. All rights reserved.

package sse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"

	agui "github.com/raphaelmansuy/agui-client-go/aguiclient"
)

// transport is an unexported interface for HTTP communication.
// The default implementation uses net/http; tests inject a mock.
type transport interface {
	do(ctx context.Context, method, url string, body any) (*http.Response, error)
}

// httpTransport is the default transport using net/http.
type httpTransport struct {
	client     *http.Client
	apiKey     string
	headers    map[string]string
	credential azcore.TokenCredential
	scopes     []string
	logger     *slog.Logger
}

func newHTTPTransport(cfg *clientConfig) *httpTransport {
	t := &httpTransport{
		client:     cfg.httpClient,
		apiKey:     cfg.apiKey,
		headers:    cfg.headers,
		credential: cfg.credential,
		scopes:     cfg.scopes,
		logger:     cfg.logger,
	}
	if t.client == nil {
		t.client = http.DefaultClient
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	return t
}

func (t *httpTransport) do(ctx context.Context, method, url string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	if t.credential != nil {
		t.logger.DebugContext(ctx, "acquiring token for agent endpoint", "scopes", t.scopes)
		token, err := t.credential.GetToken(ctx, policy.TokenRequestOptions{
			Scopes: t.scopes,
		})
		if err != nil {
			return nil, fmt.Errorf("get token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token.Token)
	} else if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, parseErrorResponse(resp)
	}

	return resp, nil
}

// parseErrorResponse reads an error response body and returns a typed error.
func parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var apiErr struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
		Detail string `json:"detail"`
	}
	_ = json.Unmarshal(body, &apiErr)

	msg := apiErr.Error.Message
	if msg == "" {
		msg = apiErr.Detail
	}
	if msg == "" {
		msg = string(body)
	}

	svcErr := &agui.ServiceError{
		StatusCode: resp.StatusCode,
		Message:    msg,
		Code:       apiErr.Error.Code,
	}

	switch {
	case resp.StatusCode == 401 || resp.StatusCode == 403:
		svcErr.Err = agui.ErrAuth
	case resp.StatusCode == 400 || resp.StatusCode == 422:
		svcErr.Err = agui.ErrInvalidRequest
	default:
		svcErr.Err = agui.ErrService
	}

	return svcErr
}
