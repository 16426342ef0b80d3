package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	sparkerrors "github.com/nyambati/sparkrun/internal/errors"
	"github.com/sirupsen/logrus"
)

type InvokerClientInterface interface {
	SendRequest(ctx context.Context, url string, payload []byte) (response []byte, statusCode int, err error)
}

var _ InvokerClientInterface = (*InvokeClient)(nil)

// InvokeClient posts events to a running invoke server.
type InvokeClient struct {
	client *http.Client
	logger *logrus.Entry
}

func NewInvokeClient(timeout time.Duration, logger *logrus.Entry) *InvokeClient {
	return &InvokeClient{
		client: &http.Client{Timeout: timeout},
		logger: logger.WithField("component", "client"),
	}
}

func (c *InvokeClient) SendRequest(ctx context.Context, url string, payload []byte) ([]byte, int, error) {
	startTime := time.Now()
	logger := c.logger.WithField("url", url)
	logger.Info("sending event to invoke endpoint")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		logger.WithError(err).Error("failed to create http request")
		return nil, http.StatusInternalServerError, fmt.Errorf("client failed to create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		logger.WithError(err).Error("failed to send http request")
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return nil, http.StatusRequestTimeout, fmt.Errorf("client: request timed out: %w", ctx.Err())
		case errors.Is(ctx.Err(), context.Canceled):
			return nil, http.StatusRequestTimeout, fmt.Errorf("client: request canceled: %w", ctx.Err())
		default:
			return nil, http.StatusInternalServerError, fmt.Errorf("client: failed to reach %s: %w", url, err)
		}
	}
	defer resp.Body.Close()

	logger.WithField("status_code", resp.StatusCode).Info("received response from invoke endpoint")

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.WithError(err).Error("failed to read response body")
		return nil, resp.StatusCode, fmt.Errorf("client: failed to read response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		logger.Warn("invoke endpoint returned non-2xx response")
		return nil, resp.StatusCode, sparkerrors.NewInvocationError(url, resp.StatusCode, string(body))
	}

	logger.WithField("duration", time.Since(startTime)).Info("request completed successfully")
	return body, resp.StatusCode, nil
}
