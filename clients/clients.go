// Package clients talks to the remote speech-to-text, chat-completion and
// text-to-speech endpoints.
package clients

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"voxchat/models"

	"github.com/sashabaranov/go-openai"
)

// Options carries the endpoint and credential every client needs.
type Options struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

func newOpenAIClient(opts Options) *openai.Client {
	config := openai.DefaultConfig(opts.Token)
	if opts.BaseURL != "" {
		config.BaseURL = opts.BaseURL
	}
	if opts.HTTPClient != nil {
		config.HTTPClient = opts.HTTPClient
	} else {
		config.HTTPClient = createClient(opts.Timeout)
	}
	return openai.NewClientWithConfig(config)
}

func createClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{
				Timeout:   timeout,
				KeepAlive: 30 * time.Second,
			}
			return dialer.DialContext(ctx, network, addr)
		},
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// stageError keeps the upstream status and message next to the failure kind.
func stageError(kind, err error) error {
	se := &models.StageError{Kind: kind, Err: err}
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		se.StatusCode = apiErr.HTTPStatusCode
		se.Message = apiErr.Message
	case errors.As(err, &reqErr):
		se.StatusCode = reqErr.HTTPStatusCode
		se.Message = strings.TrimSpace(string(reqErr.Body))
	}
	return se
}
