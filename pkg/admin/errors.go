// Error handling for the admin API. Store and encode failures are logged
// with full detail server-side; clients get a generic message so internal
// paths and filenames never leak into responses.

package admin

import "log/slog"

// ErrMsgInternalError is the generic client-facing failure message.
const ErrMsgInternalError = "An internal error occurred"

// loadFailure logs the full error and returns a sanitized message for the
// client response.
func loadFailure(log *slog.Logger, err error, operation string) string {
	if log != nil {
		log.Error("operation failed", "operation", operation, "error", err)
	}
	return ErrMsgInternalError
}
