package commands

import (
	"errors"
	"strings"
	"testing"

	apierrors "github.com/diogo/promptin/internal/errors"
)

func TestFormatErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains []string
	}{
		{
			name:     "plain error",
			err:      errors.New("boom"),
			contains: []string{"Error: boom"},
		},
		{
			name:     "auth error hint",
			err:      apierrors.NewAuthError(""),
			contains: []string{"authentication failed", "OPENAI_API_KEY"},
		},
		{
			name:     "api error with status and endpoint",
			err:      apierrors.NewAPIError(500, "https://api.example.com/v1/chat/completions", "server error"),
			contains: []string{"HTTP Status: 500", "Endpoint: https://api.example.com/v1/chat/completions"},
		},
		{
			name:     "body replaces hint",
			err:      apierrors.NewAPIErrorWithBody(400, "/chat/completions", "bad request", "model not found"),
			contains: []string{"model not found"},
		},
		{
			name:     "timeout hint",
			err:      apierrors.NewTimeoutError("request timed out"),
			contains: []string{"timed out"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatErrorMessage(tt.err, "Error")
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("formatErrorMessage() = %q, should contain %q", got, want)
				}
			}
		})
	}
}

func TestFormatErrorMessage_Nil(t *testing.T) {
	if got := formatErrorMessage(nil, "Error"); got != "" {
		t.Errorf("formatErrorMessage(nil) = %q, want empty", got)
	}
}
