package llm

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hpungsan/rnupgrade/internal/errors"
)

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// classify maps a non-200 provider response onto the error taxonomy.
func classify(resp *http.Response, body []byte) error {
	var apiErr apiErrorBody
	_ = json.Unmarshal(body, &apiErr)

	msg := apiErr.Error.Message
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = resp.Status
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return errors.NewRateLimited(msg, resetHint(resp.Header))
	}
	if code, _ := apiErr.Error.Code.(string); code == "context_length_exceeded" {
		return errors.NewContextTooLarge(msg)
	}
	return providerError(resp.StatusCode, msg)
}

func providerError(status int, msg string) error {
	return errors.NewUnknownProvider(status, msg)
}

// resetHint reads the provider's retry hint. Retry-After carries seconds;
// x-ratelimit-reset-requests carries a Go-style duration such as "6m0s".
func resetHint(h http.Header) time.Duration {
	if v := strings.TrimSpace(h.Get("Retry-After")); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	if v := strings.TrimSpace(h.Get("x-ratelimit-reset-requests")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return 0
}

// Describe renders a provider error as the short explanation shown to the
// operator.
func Describe(err error) string {
	switch {
	case errors.Is(err, errors.ErrRateLimited):
		uErr, _ := errors.As(err)
		if uErr.RetryAfter > 0 {
			return fmt.Sprintf("rate limited, retry in %s", uErr.RetryAfter.Round(time.Second))
		}
		return "rate limited"
	case errors.Is(err, errors.ErrContextTooLarge):
		return "file too long"
	case errors.Is(err, errors.ErrMalformedFunctionCall):
		return "malformed function call"
	default:
		return "unknown error"
	}
}
