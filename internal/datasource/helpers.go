package datasource

import (
	"fmt"

	"github.com/flagforge/flagforge-go/internal/fflog"
)

// httpStatusError wraps an HTTP response status that a request helper wants to propagate
// as an error, distinguishing it from a plain network error.
type httpStatusError struct {
	Message string
	Code    int
}

func (e httpStatusError) Error() string { return e.Message }

// malformedJSONError marks a response body that failed to decode, as opposed to a
// transport-level failure -- callers classify this as INVALID_DATA, not NETWORK_ERROR.
type malformedJSONError struct{ inner error }

func (e malformedJSONError) Error() string { return e.inner.Error() }

// isHTTPErrorRecoverable reports whether statusCode is worth retrying: 400, 408, 429, and
// every 5xx except 501 are recoverable; everything else (notably 401/403/404/410/501)
// latches the data source to OFF.
func isHTTPErrorRecoverable(statusCode int) bool {
	switch {
	case statusCode == 400, statusCode == 408, statusCode == 429:
		return true
	case statusCode >= 400 && statusCode < 500:
		return false
	case statusCode == 501:
		return false
	case statusCode >= 500:
		return true
	default:
		return true
	}
}

func httpErrorDescription(statusCode int) string {
	if statusCode == 401 || statusCode == 403 {
		return fmt.Sprintf("HTTP error %d (invalid SDK key)", statusCode)
	}
	return fmt.Sprintf("HTTP error %d", statusCode)
}

// checkIfErrorIsRecoverableAndLog logs the error at the appropriate level and reports
// whether the caller should keep retrying.
func checkIfErrorIsRecoverableAndLog(
	loggers fflog.Loggers,
	errorDesc, errorContext string,
	statusCode int,
	recoverableMessage string,
) bool {
	if statusCode > 0 && !isHTTPErrorRecoverable(statusCode) {
		loggers.Errorf("error %s (giving up permanently): %s", errorContext, errorDesc)
		return false
	}
	loggers.Warnf("error %s (%s): %s", errorContext, recoverableMessage, errorDesc)
	return true
}

func checkForHTTPError(statusCode int, url string) error {
	switch statusCode {
	case 401, 403:
		return httpStatusError{
			Message: fmt.Sprintf("invalid SDK key accessing %s", url),
			Code:    statusCode,
		}
	case 404:
		return httpStatusError{
			Message: fmt.Sprintf("resource not found at %s", url),
			Code:    statusCode,
		}
	}
	if statusCode/100 != 2 {
		return httpStatusError{
			Message: fmt.Sprintf("unexpected response code %d from %s", statusCode, url),
			Code:    statusCode,
		}
	}
	return nil
}
