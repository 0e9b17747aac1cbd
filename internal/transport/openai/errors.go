package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/matchd/internal/domain"
)

// classifyAPIError maps provider failures onto the domain error taxonomy:
// rate limits, transient network-class failures, and everything else.
func classifyAPIError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", domain.ErrTransient, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", domain.ErrTransient, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == 0 {
			// No HTTP status means the request never completed (connection failure).
			return fmt.Errorf("%w: %w", domain.ErrTransient, err)
		}
		return classifyStatus(reqErr.HTTPStatusCode, err)
	}

	return err
}

func classifyStatus(status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", domain.NewRateLimit(0), err)
	case status >= http.StatusInternalServerError,
		status == http.StatusRequestTimeout:
		return fmt.Errorf("%w: %w", domain.ErrTransient, err)
	default:
		return err
	}
}
