package telegram

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestFloodWaitSeconds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, 0},
		{"plain flood wait", errors.New("FLOOD_WAIT_15"), 15},
		{"wrapped rpc error", errors.New("rpc error code 420: FLOOD_WAIT_30"), 30},
		{"with suffix", errors.New("FLOOD_WAIT_7 (caused by messages.GetHistory)"), 7},
		{"unrelated error", errors.New("CHANNEL_PRIVATE"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FloodWaitSeconds(tt.err); got != tt.want {
				t.Errorf("FloodWaitSeconds() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIsPermissionError(t *testing.T) {
	if !IsPermissionError(errors.New("rpc error code 400: CHANNEL_PRIVATE")) {
		t.Error("CHANNEL_PRIVATE should be a permission error")
	}
	if !IsPermissionError(fmt.Errorf("resolve group: %w", errors.New("CHAT_ADMIN_REQUIRED"))) {
		t.Error("CHAT_ADMIN_REQUIRED should be a permission error")
	}
	if IsPermissionError(errors.New("FLOOD_WAIT_5")) {
		t.Error("FLOOD_WAIT should not be a permission error")
	}
	if IsPermissionError(nil) {
		t.Error("nil should not be a permission error")
	}
}

func TestIsAuthError(t *testing.T) {
	if !IsAuthError(errors.New("rpc error code 401: AUTH_KEY_UNREGISTERED")) {
		t.Error("AUTH_KEY_UNREGISTERED should be an auth error")
	}
	if !IsAuthError(errors.New("telegram client not authorized")) {
		t.Error("unauthorized client should be an auth error")
	}
	if IsAuthError(errors.New("CHANNEL_PRIVATE")) {
		t.Error("CHANNEL_PRIVATE should not be an auth error")
	}
}

func TestIsTransientError(t *testing.T) {
	if !IsTransientError(errors.New("FLOOD_WAIT_5")) {
		t.Error("FLOOD_WAIT should be transient")
	}
	if !IsTransientError(context.DeadlineExceeded) {
		t.Error("deadline exceeded should be transient")
	}
	if !IsTransientError(errors.New("read tcp: i/o timeout")) {
		t.Error("io timeout should be transient")
	}
	if IsTransientError(errors.New("AUTH_KEY_UNREGISTERED")) {
		t.Error("auth errors are not transient")
	}
}
