package events

import (
	"fmt"
	"net/http"
)

// httpStatusError wraps an HTTP response status this package wants to propagate as an error.
type httpStatusError struct {
	Message string
	Code    int
}

func (e httpStatusError) Error() string { return e.Message }

func checkForHTTPError(statusCode int, url string) error {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return httpStatusError{
			Message: fmt.Sprintf("invalid SDK key posting events to %s", url),
			Code:    statusCode,
		}
	case http.StatusNotFound:
		return httpStatusError{
			Message: fmt.Sprintf("resource not found posting events to %s", url),
			Code:    statusCode,
		}
	}
	if statusCode/100 != 2 {
		return httpStatusError{
			Message: fmt.Sprintf("unexpected response code %d posting events to %s", statusCode, url),
			Code:    statusCode,
		}
	}
	return nil
}

func httpErrorMessage(statusCode int, context, recoverableMessage string) string {
	statusDesc := ""
	if statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden {
		statusDesc = " (invalid SDK key)"
	}
	result := recoverableMessage
	if !isHTTPErrorRecoverable(statusCode) {
		result = "giving up permanently"
	}
	return fmt.Sprintf("received HTTP error %d%s for %s - %s", statusCode, statusDesc, context, result)
}

// isHTTPErrorRecoverable reports whether statusCode is worth retrying: 400, 408, 429, and
// every 5xx are recoverable; every other 4xx (notably 401/403/404) permanently disables
// further sending.
func isHTTPErrorRecoverable(statusCode int) bool {
	if statusCode >= 400 && statusCode < 500 {
		switch statusCode {
		case 400, 408, 429:
			return true
		default:
			return false
		}
	}
	return true
}
