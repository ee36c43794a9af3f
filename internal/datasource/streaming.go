package datasource

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	es "github.com/launchdarkly/eventsource"
	"golang.org/x/exp/maps"

	"github.com/flagforge/flagforge-go/interfaces"
	"github.com/flagforge/flagforge-go/internal/endpoints"
	"github.com/flagforge/flagforge-go/internal/fflog"
	"github.com/flagforge/flagforge-go/subsystems"
	st "github.com/flagforge/flagforge-go/subsystems/ldstoretypes"
)

const (
	putEventName    = "put"
	patchEventName  = "patch"
	deleteEventName = "delete"

	streamReadTimeout        = 5 * time.Minute
	streamMaxRetryDelay      = 30 * time.Second
	streamRetryResetInterval = 60 * time.Second
	streamJitterRatio        = 0.5
	defaultStreamRetryDelay  = 1 * time.Second

	streamingErrorContext     = "in stream connection"
	streamingWillRetryMessage = "will retry"
)

// StreamConfig configures a StreamingDataSource.
type StreamConfig struct {
	URI                   string
	InitialReconnectDelay time.Duration
}

// StreamingDataSource maintains an SSE connection and applies put/patch/delete events to a
// DataSourceUpdateSink, reconnecting with backoff on recoverable errors and latching to OFF
// on an unrecoverable one.
type StreamingDataSource struct {
	cfg           StreamConfig
	updates       subsystems.DataSourceUpdateSink
	client        *http.Client
	headers       http.Header
	loggers       fflog.Loggers
	isInitialized atomic.Bool
	halt          chan struct{}
	storeStatusCh <-chan interfaces.DataStoreStatus
	readyOnce     sync.Once
	closeOnce     sync.Once
}

// NewStreamingDataSource creates a StreamingDataSource bound to context's HTTP settings.
func NewStreamingDataSource(
	context subsystems.ClientContext,
	updates subsystems.DataSourceUpdateSink,
	cfg StreamConfig,
) *StreamingDataSource {
	sp := &StreamingDataSource{
		cfg:     cfg,
		updates: updates,
		headers: context.GetHTTP().DefaultHeaders,
		loggers: context.GetLogging().Loggers,
		halt:    make(chan struct{}),
	}
	sp.client = context.GetHTTP().CreateHTTPClient()
	sp.client.Timeout = 0 // the stream response body never completes; only the dialer should time out
	return sp
}

func (sp *StreamingDataSource) IsInitialized() bool { return sp.isInitialized.Load() }

func (sp *StreamingDataSource) Start(closeWhenReady chan<- struct{}) {
	sp.loggers.Info("starting streaming connection")
	if sp.updates.GetDataStoreStatusProvider().IsStatusMonitoringEnabled() {
		sp.storeStatusCh = sp.updates.GetDataStoreStatusProvider().AddStatusListener()
	}
	go sp.subscribe(closeWhenReady)
}

func (sp *StreamingDataSource) subscribe(closeWhenReady chan<- struct{}) {
	req, err := http.NewRequest("GET", endpoints.JoinPath(sp.cfg.URI, endpoints.StreamingRequestPath), nil)
	if err != nil {
		sp.loggers.Errorf("unable to create stream request, probably a bad base URI: %s", err)
		sp.updates.UpdateStatus(interfaces.DataSourceStateOff, interfaces.DataSourceErrorInfo{
			Kind: interfaces.DataSourceErrorKindUnknown, Message: err.Error(), Time: time.Now(),
		})
		close(closeWhenReady)
		return
	}
	if sp.headers != nil {
		req.Header = maps.Clone(sp.headers)
	}
	sp.loggers.Info("connecting to streaming endpoint")

	initialDelay := sp.cfg.InitialReconnectDelay
	if initialDelay <= 0 {
		initialDelay = defaultStreamRetryDelay
	}

	errorHandler := func(err error) es.StreamErrorHandlerResult {
		if se, ok := err.(es.SubscriptionError); ok {
			errorInfo := interfaces.DataSourceErrorInfo{
				Kind: interfaces.DataSourceErrorKindErrorResponse, StatusCode: se.Code, Time: time.Now(),
			}
			if checkIfErrorIsRecoverableAndLog(
				sp.loggers, httpErrorDescription(se.Code), streamingErrorContext, se.Code, streamingWillRetryMessage,
			) {
				sp.updates.UpdateStatus(interfaces.DataSourceStateInterrupted, errorInfo)
				return es.StreamErrorHandlerResult{CloseNow: false}
			}
			sp.updates.UpdateStatus(interfaces.DataSourceStateOff, errorInfo)
			return es.StreamErrorHandlerResult{CloseNow: true}
		}
		checkIfErrorIsRecoverableAndLog(sp.loggers, err.Error(), streamingErrorContext, 0, streamingWillRetryMessage)
		sp.updates.UpdateStatus(interfaces.DataSourceStateInterrupted, interfaces.DataSourceErrorInfo{
			Kind: interfaces.DataSourceErrorKindNetworkError, Message: err.Error(), Time: time.Now(),
		})
		return es.StreamErrorHandlerResult{CloseNow: false}
	}

	stream, err := es.SubscribeWithRequestAndOptions(req,
		es.StreamOptionHTTPClient(sp.client),
		es.StreamOptionReadTimeout(streamReadTimeout),
		es.StreamOptionInitialRetry(initialDelay),
		es.StreamOptionUseBackoff(streamMaxRetryDelay),
		es.StreamOptionUseJitter(streamJitterRatio),
		es.StreamOptionRetryResetInterval(streamRetryResetInterval),
		es.StreamOptionErrorHandler(errorHandler),
		es.StreamOptionCanRetryFirstConnection(-1),
	)
	if err != nil {
		close(closeWhenReady)
		return
	}
	sp.consume(stream, closeWhenReady)
}

func (sp *StreamingDataSource) consume(stream *es.Stream, closeWhenReady chan<- struct{}) {
	defer func() {
		for range stream.Events {
		}
		if stream.Errors != nil {
			for range stream.Errors {
			}
		}
	}()

	for {
		select {
		case event, ok := <-stream.Events:
			if !ok {
				return
			}
			processed := true
			restart := false

			malformed := func(err error) {
				sp.loggers.Errorf("malformed %q event (%s); restarting stream", event.Event(), err)
				sp.updates.UpdateStatus(interfaces.DataSourceStateInterrupted, interfaces.DataSourceErrorInfo{
					Kind: interfaces.DataSourceErrorKindInvalidData, Message: err.Error(), Time: time.Now(),
				})
				restart, processed = true, false
			}
			storeFailed := func(what string) {
				if sp.storeStatusCh != nil {
					sp.loggers.Errorf("failed to store %s; will retry once store recovers", what)
					return
				}
				sp.loggers.Errorf("failed to store %s; restarting stream", what)
				restart, processed = true, false
			}

			switch event.Event() {
			case putEventName:
				put, err := parsePutData([]byte(event.Data()))
				if err != nil {
					malformed(err)
					break
				}
				if sp.updates.Init(put.Data) {
					sp.setInitializedAndNotify(closeWhenReady)
				} else {
					storeFailed("initial streaming data")
				}
			case patchEventName:
				patch, err := parsePatchData([]byte(event.Data()))
				if err != nil {
					malformed(err)
					break
				}
				if patch.Kind == nil {
					break
				}
				if !sp.updates.Upsert(patch.Kind, patch.Key, patch.Data) {
					storeFailed("update of " + patch.Key)
				}
			case deleteEventName:
				del, err := parseDeleteData([]byte(event.Data()))
				if err != nil {
					malformed(err)
					break
				}
				if del.Kind == nil {
					break
				}
				tombstone := st.ItemDescriptor{Version: del.Version, Item: nil}
				if !sp.updates.Upsert(del.Kind, del.Key, tombstone) {
					storeFailed("deletion of " + del.Key)
				}
			default:
				sp.loggers.Infof("unexpected stream event: %s", event.Event())
			}

			if processed {
				sp.updates.UpdateStatus(interfaces.DataSourceStateValid, interfaces.DataSourceErrorInfo{})
			}
			if restart {
				stream.Restart()
			}

		case newStatus, ok := <-sp.storeStatusCh:
			if !ok {
				continue
			}
			if newStatus.Available {
				if newStatus.RefreshNeeded {
					sp.loggers.Warn("restarting stream to refresh data after store outage")
					stream.Restart()
				}
				sp.setInitializedAndNotify(closeWhenReady)
			}

		case <-sp.halt:
			stream.Close()
			return
		}
	}
}

func (sp *StreamingDataSource) setInitializedAndNotify(closeWhenReady chan<- struct{}) {
	if !sp.isInitialized.Swap(true) {
		sp.loggers.Info("streaming connection is active")
	}
	sp.readyOnce.Do(func() { close(closeWhenReady) })
}

func (sp *StreamingDataSource) Close() error {
	sp.closeOnce.Do(func() {
		close(sp.halt)
		if sp.storeStatusCh != nil {
			sp.updates.GetDataStoreStatusProvider().RemoveStatusListener(sp.storeStatusCh)
		}
		sp.updates.UpdateStatus(interfaces.DataSourceStateOff, interfaces.DataSourceErrorInfo{})
	})
	return nil
}
