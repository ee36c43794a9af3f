// Package endpoints resolves the base URIs and request paths for the streaming, polling,
// and events services, honoring per-service overrides from interfaces.ServiceEndpoints.
package endpoints

import (
	"strings"

	"github.com/flagforge/flagforge-go/internal/fflog"
	"github.com/flagforge/flagforge-go/interfaces"
)

// ServiceType identifies which of the three services a URI or path belongs to.
type ServiceType int

const (
	StreamingService ServiceType = iota
	PollingService
	EventsService
)

func (s ServiceType) String() string {
	switch s {
	case StreamingService:
		return "Streaming"
	case PollingService:
		return "Polling"
	case EventsService:
		return "Events"
	default:
		return "???"
	}
}

const (
	// DefaultStreamingBaseURI is the default base URI of the streaming service.
	DefaultStreamingBaseURI = "https://stream.flagforge.io/"

	// DefaultPollingBaseURI is the default base URI of the polling service.
	DefaultPollingBaseURI = "https://sdk.flagforge.io/"

	// DefaultEventsBaseURI is the default base URI of the events service.
	DefaultEventsBaseURI = "https://events.flagforge.io/"

	// StreamingRequestPath is the URL path for the server-side streaming endpoint.
	StreamingRequestPath = "/all"

	// PollingRequestPath is the URL path for the server-side polling endpoint.
	PollingRequestPath = "/all"

	// EventsBulkRequestPath is the URL path events are POSTed to in bulk.
	EventsBulkRequestPath = "/bulk"

	// EventsDiagnosticRequestPath is the URL path periodic diagnostic events are POSTed to.
	EventsDiagnosticRequestPath = "/diagnostic"
)

func anyCustom(se interfaces.ServiceEndpoints) bool {
	return se.Streaming != "" || se.Polling != "" || se.Events != ""
}

func getCustom(se interfaces.ServiceEndpoints, serviceType ServiceType) string {
	switch serviceType {
	case StreamingService:
		return se.Streaming
	case PollingService:
		return se.Polling
	case EventsService:
		return se.Events
	default:
		return ""
	}
}

// DefaultBaseURI returns the default base URI for the given service.
func DefaultBaseURI(serviceType ServiceType) string {
	switch serviceType {
	case StreamingService:
		return DefaultStreamingBaseURI
	case PollingService:
		return DefaultPollingBaseURI
	case EventsService:
		return DefaultEventsBaseURI
	default:
		return ""
	}
}

// SelectBaseURI resolves the base URI to use for serviceType: an explicit overrideValue wins,
// then a configured ServiceEndpoints entry, then the built-in default. If the caller has set
// at least one custom ServiceEndpoints value but left this one blank, that is very likely a
// misconfiguration (the other services will point elsewhere), so it's logged.
func SelectBaseURI(
	se interfaces.ServiceEndpoints,
	serviceType ServiceType,
	overrideValue string,
	loggers fflog.Loggers,
) string {
	uri := overrideValue
	if uri == "" {
		if anyCustom(se) {
			uri = getCustom(se, serviceType)
			if uri == "" {
				loggers.Errorf(
					"custom ServiceEndpoints were set without a %s base URI; connections may not work properly",
					serviceType,
				)
				uri = DefaultBaseURI(serviceType)
			}
		} else {
			uri = DefaultBaseURI(serviceType)
		}
	}
	return strings.TrimRight(uri, "/")
}

// JoinPath concatenates a subpath onto a base URI without producing a double slash.
func JoinPath(baseURI, path string) string {
	return strings.TrimSuffix(baseURI, "/") + "/" + strings.TrimPrefix(path, "/")
}
