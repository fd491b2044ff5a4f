// Copyright (c) The agui-client-go authors. All rights reserved.

package sse

import (
	"log/slog"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

// Option configures a [Client].
type Option func(*clientConfig)

type clientConfig struct {
	httpClient *http.Client
	apiKey     string
	headers    map[string]string
	credential azcore.TokenCredential
	scopes     []string
	logger     *slog.Logger
}

// WithHTTPClient sets a custom *http.Client (e.g. with timeouts or proxies).
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *clientConfig) { cfg.httpClient = c }
}

// WithAPIKey sets a bearer API key sent on every request.
func WithAPIKey(key string) Option {
	return func(cfg *clientConfig) { cfg.apiKey = key }
}

// WithHeader adds a custom header sent on every request.
func WithHeader(key, value string) Option {
	return func(cfg *clientConfig) {
		if cfg.headers == nil {
			cfg.headers = make(map[string]string)
		}
		cfg.headers[key] = value
	}
}

// WithTokenCredential authenticates requests with an Azure AD token acquired
// for the given scopes instead of an API key.
func WithTokenCredential(cred azcore.TokenCredential, scopes ...string) Option {
	return func(cfg *clientConfig) {
		cfg.credential = cred
		cfg.scopes = scopes
	}
}

// WithClientLogger sets the logger used by the transport. Defaults to
// slog.Default().
func WithClientLogger(logger *slog.Logger) Option {
	return func(cfg *clientConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}
