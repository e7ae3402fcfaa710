package errors

import (
	"fmt"
	"testing"
	"time"
)

func TestUpgradeError_Error(t *testing.T) {
	err := &UpgradeError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: "file not found",
	}

	expected := "FILE_NOT_FOUND: file not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("from version is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "from version is required" {
		t.Errorf("Message = %q, want %q", err.Message, "from version is required")
	}
}

func TestNewFileNotFound(t *testing.T) {
	err := NewFileNotFound("ios/Podfile")

	if err.Code != ErrFileNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrFileNotFound)
	}
	if err.Message != "file not found" {
		t.Errorf("Message = %q, want %q", err.Message, "file not found")
	}
	if err.Details["path"] != "ios/Podfile" {
		t.Errorf("Details[path] = %v, want %q", err.Details["path"], "ios/Podfile")
	}
}

func TestNewDiffUnavailable(t *testing.T) {
	err := NewDiffUnavailable("0.70.0", "0.99.0", "https://example.test/0.70.0..0.99.0.diff")

	if err.Code != ErrDiffUnavailable {
		t.Errorf("Code = %q, want %q", err.Code, ErrDiffUnavailable)
	}
	if err.Details["url"] != "https://example.test/0.70.0..0.99.0.diff" {
		t.Errorf("Details[url] = %v", err.Details["url"])
	}
}

func TestNewAlreadyOnVersion(t *testing.T) {
	err := NewAlreadyOnVersion("0.72.3")

	if err.Code != ErrDiffUnavailable {
		t.Errorf("Code = %q, want %q", err.Code, ErrDiffUnavailable)
	}
	if err.Message != "already on version 0.72.3, no diff to apply" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewMalformedFunctionCall(t *testing.T) {
	err := NewMalformedFunctionCall("patch", "invalid JSON")

	if err.Code != ErrMalformedFunctionCall {
		t.Errorf("Code = %q, want %q", err.Code, ErrMalformedFunctionCall)
	}
	if err.Status != 422 {
		t.Errorf("Status = %d, want 422", err.Status)
	}
	if err.Details["reason"] != "invalid JSON" {
		t.Errorf("Details[reason] = %v, want %q", err.Details["reason"], "invalid JSON")
	}
}

func TestNewRateLimited(t *testing.T) {
	err := NewRateLimited("slow down", 3*time.Second)

	if err.Code != ErrRateLimited {
		t.Errorf("Code = %q, want %q", err.Code, ErrRateLimited)
	}
	if err.RetryAfter != 3*time.Second {
		t.Errorf("RetryAfter = %v, want 3s", err.RetryAfter)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	err := NewUnknownProvider(503, "service unavailable")

	if err.Code != ErrUnknownProvider {
		t.Errorf("Code = %q, want %q", err.Code, ErrUnknownProvider)
	}
	if err.Details["provider_status"] != 503 {
		t.Errorf("Details[provider_status] = %v, want 503", err.Details["provider_status"])
	}
}

func TestNewInternal(t *testing.T) {
	t.Run("with error", func(t *testing.T) {
		err := NewInternal(fmt.Errorf("disk full"))

		if err.Code != ErrInternal {
			t.Errorf("Code = %q, want %q", err.Code, ErrInternal)
		}
		if err.Message != "an internal error occurred" {
			t.Errorf("Message = %q, want %q", err.Message, "an internal error occurred")
		}
		if err.Details["internal_error"] != "disk full" {
			t.Errorf("Details[internal_error] = %v, want %q", err.Details["internal_error"], "disk full")
		}
	})

	t.Run("with nil", func(t *testing.T) {
		err := NewInternal(nil)
		if err.Details == nil {
			t.Error("Details should not be nil")
		}
	})
}

func TestIs(t *testing.T) {
	t.Run("matching code", func(t *testing.T) {
		if !Is(NewNotFound("run"), ErrNotFound) {
			t.Error("Is() = false, want true")
		}
	})

	t.Run("non-matching code", func(t *testing.T) {
		if Is(NewNotFound("run"), ErrRateLimited) {
			t.Error("Is() = true, want false")
		}
	})

	t.Run("plain error", func(t *testing.T) {
		if Is(fmt.Errorf("plain error"), ErrNotFound) {
			t.Error("Is() = true, want false for plain error")
		}
	})

	t.Run("wrapped", func(t *testing.T) {
		wrapped := fmt.Errorf("round 2: %w", NewContextTooLarge("too long"))
		if !Is(wrapped, ErrContextTooLarge) {
			t.Error("Is() = false, want true for wrapped error")
		}
		uErr, ok := As(wrapped)
		if !ok || uErr.Code != ErrContextTooLarge {
			t.Errorf("As() = %v, %v", uErr, ok)
		}
	})
}
