package llm

import (
	"errors"
	"testing"
)

func TestIsKind(t *testing.T) {
	err := NewConfigurationError("missing api key")
	if !IsKind(err, KindConfiguration) {
		t.Error("Expected IsKind to return true for configuration error")
	}
	if IsKind(err, KindTransport) {
		t.Error("Expected IsKind to return false for mismatched kind")
	}
	if IsKind(errors.New("plain"), KindConfiguration) {
		t.Error("Expected IsKind to return false for foreign error")
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(NewContentBlockedError("blocked")); got != KindContentBlocked {
		t.Errorf("Expected kind %v, got %v", KindContentBlocked, got)
	}
	if got := KindOf(errors.New("plain")); got != "" {
		t.Errorf("Expected empty kind for foreign error, got %v", got)
	}
}

func TestKindOfWrapped(t *testing.T) {
	inner := NewTransportError("connection reset", errors.New("ECONNRESET"))
	wrapped := errors.Join(errors.New("outer"), inner)
	if got := KindOf(wrapped); got != KindTransport {
		t.Errorf("Expected kind %v through wrapping, got %v", KindTransport, got)
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(NewTransportError("timeout", nil)) {
		t.Error("Expected transport errors to be retryable")
	}
	if IsRetryable(NewRequestError("bad request", 400, nil)) {
		t.Error("Expected request errors to be non-retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("Expected foreign errors to be non-retryable")
	}
}

func TestErrorUnwrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := NewTransportError("wrapped", originalErr)
	if !errors.Is(wrappedErr, originalErr) {
		t.Error("Expected error to unwrap to original error")
	}
}

func TestToolErrors(t *testing.T) {
	nf := NewToolNotFoundError("get_weather")
	if !IsKind(nf, KindToolNotFound) {
		t.Error("Expected tool not found kind")
	}
	ex := NewToolExecutionError("get_weather", errors.New("boom"))
	if !IsKind(ex, KindToolExecution) {
		t.Error("Expected tool execution kind")
	}
	if ex.Error() == "" {
		t.Error("Expected non-empty error message")
	}
}
