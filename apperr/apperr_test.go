package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "unauthenticated",
			err:      ErrUnauthenticated,
			expected: http.StatusUnauthorized,
		},
		{
			name:     "wrapped unauthenticated",
			err:      fmt.Errorf("%w: token expired", ErrUnauthenticated),
			expected: http.StatusUnauthorized,
		},
		{
			name:     "forbidden",
			err:      fmt.Errorf("%w: not the owner", ErrForbidden),
			expected: http.StatusForbidden,
		},
		{
			name:     "not found",
			err:      fmt.Errorf("%w: chat", ErrNotFound),
			expected: http.StatusNotFound,
		},
		{
			name:     "validation",
			err:      fmt.Errorf("%w: name is required", ErrValidation),
			expected: http.StatusBadRequest,
		},
		{
			name:     "upstream",
			err:      fmt.Errorf("%w: mongo timeout", ErrUpstream),
			expected: http.StatusInternalServerError,
		},
		{
			name:     "unknown error",
			err:      errors.New("something odd"),
			expected: http.StatusInternalServerError,
		},
		{
			name:     "attached message keeps the sentinel's status",
			err:      WithMessage(fmt.Errorf("%w: user", ErrNotFound), "User not found."),
			expected: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Status(tt.err); got != tt.expected {
				t.Errorf("Status(%v) = %d, want %d", tt.err, got, tt.expected)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "all auth failures share one message",
			err:      fmt.Errorf("%w: signature mismatch", ErrUnauthenticated),
			expected: UnauthenticatedMessage,
		},
		{
			name:     "forbidden",
			err:      fmt.Errorf("%w: only the owner may delete the chat", ErrForbidden),
			expected: "You are not allowed to do that.",
		},
		{
			name:     "not found",
			err:      fmt.Errorf("%w: chat", ErrNotFound),
			expected: "Not found.",
		},
		{
			name:     "validation keeps its detail",
			err:      fmt.Errorf("%w: invalid chatId", ErrValidation),
			expected: "validation failed: invalid chatId",
		},
		{
			name:     "upstream detail never leaks",
			err:      fmt.Errorf("%w: mongo: connection refused", ErrUpstream),
			expected: "Something went wrong.",
		},
		{
			name:     "attached message returned verbatim",
			err:      WithMessage(fmt.Errorf("%w: user", ErrNotFound), "User not found."),
			expected: "User not found.",
		},
		{
			name:     "attached message on a validation sentinel",
			err:      WithMessage(ErrValidation, "User is already a member of the chat."),
			expected: "User is already a member of the chat.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Message(tt.err); got != tt.expected {
				t.Errorf("Message(%v) = %q, want %q", tt.err, got, tt.expected)
			}
		})
	}
}
