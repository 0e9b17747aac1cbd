package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/matchd/internal/domain"
)

func TestClassifyAPIError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			"deadline exceeded is transient",
			fmt.Errorf("request: %w", context.DeadlineExceeded),
			domain.ErrTransient,
		},
		{
			"network error is transient",
			&net.DNSError{Err: "no such host", Name: "api.openai.com"},
			domain.ErrTransient,
		},
		{
			"429 is rate limited",
			&openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "slow down"},
			domain.ErrRateLimited,
		},
		{
			"500 is transient",
			&openai.APIError{HTTPStatusCode: http.StatusInternalServerError, Message: "boom"},
			domain.ErrTransient,
		},
		{
			"503 is transient",
			&openai.APIError{HTTPStatusCode: http.StatusServiceUnavailable, Message: "overloaded"},
			domain.ErrTransient,
		},
		{
			"request error without status is transient",
			&openai.RequestError{HTTPStatusCode: 0, Err: errors.New("connection refused")},
			domain.ErrTransient,
		},
		{
			"request error with 502 is transient",
			&openai.RequestError{HTTPStatusCode: http.StatusBadGateway, Err: errors.New("bad gateway")},
			domain.ErrTransient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyAPIError(tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("classifyAPIError(%v) = %v, expected %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassifyAPIError_PermanentErrorsPassThrough(t *testing.T) {
	apiErr := &openai.APIError{HTTPStatusCode: http.StatusBadRequest, Message: "invalid model"}

	got := classifyAPIError(apiErr)
	if errors.Is(got, domain.ErrTransient) || errors.Is(got, domain.ErrRateLimited) {
		t.Errorf("400 must not be retryable, got %v", got)
	}
	if !errors.As(got, &apiErr) {
		t.Errorf("original error lost: %v", got)
	}
}
