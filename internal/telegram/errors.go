package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// rpc error codes that mean the account cannot read the group
var permissionErrorCodes = []string{
	"CHANNEL_PRIVATE",
	"CHAT_ADMIN_REQUIRED",
	"USER_BANNED_IN_CHANNEL",
	"CHANNEL_INVALID",
}

// rpc error codes that mean the session is no longer usable
var authErrorCodes = []string{
	"AUTH_KEY_UNREGISTERED",
	"AUTH_KEY_INVALID",
	"SESSION_REVOKED",
	"SESSION_EXPIRED",
	"USER_DEACTIVATED",
}

// IsPermissionError reports whether the error means the account
// lacks access to the group. Not retryable.
func IsPermissionError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	for _, code := range permissionErrorCodes {
		if strings.Contains(s, code) {
			return true
		}
	}
	return false
}

// IsAuthError reports whether the error means the credential is
// invalid or expired. Not retryable; the caller should prompt re-auth.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	for _, code := range authErrorCodes {
		if strings.Contains(s, code) {
			return true
		}
	}
	return strings.Contains(s, "not authorized")
}

// IsTransientError reports whether the error is a rate-limit or
// timeout signal worth retrying.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "FLOOD_WAIT_") ||
		strings.Contains(s, "TIMEOUT") ||
		strings.Contains(s, "i/o timeout") ||
		strings.Contains(s, "connection reset")
}

// FloodWaitSeconds extracts the wait from a FLOOD_WAIT error,
// or 0 if the error is not a flood wait.
// gotd wraps rpc errors, so matching the error string is the most
// reliable check without coupling to tg error internals.
func FloodWaitSeconds(err error) int {
	if err == nil {
		return 0
	}

	str := err.Error()
	if !strings.Contains(str, "FLOOD_WAIT_") {
		return 0
	}

	// format is usually "rpc error code 420: FLOOD_WAIT_15"
	parts := strings.Split(str, "FLOOD_WAIT_")
	if len(parts) < 2 {
		return 0
	}

	var seconds int
	numStr := strings.TrimSpace(parts[1])
	// may carry a " (caused by ...)" suffix, simple scan handles it
	_, _ = fmt.Sscanf(numStr, "%d", &seconds)
	return seconds
}
