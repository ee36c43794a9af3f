package datasource

import (
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gregjones/httpcache"
	"golang.org/x/exp/maps"

	"github.com/flagforge/flagforge-go/interfaces"
	"github.com/flagforge/flagforge-go/internal/endpoints"
	"github.com/flagforge/flagforge-go/internal/fflog"
	"github.com/flagforge/flagforge-go/subsystems"
	st "github.com/flagforge/flagforge-go/subsystems/ldstoretypes"
)

const (
	pollingErrorContext     = "on polling request"
	pollingWillRetryMessage = "will retry at next scheduled poll interval"

	// MinimumPollInterval is the floor NewPollingDataSource raises a shorter poll interval to.
	MinimumPollInterval = 30 * time.Second
)

// PollConfig configures a PollingDataSource.
type PollConfig struct {
	BaseURI      string
	PollInterval time.Duration
}

// requester fetches the full data set from the polling endpoint, reporting whether the
// response was served from the conditional-request cache.
type requester interface {
	request() (data []st.Collection, cached bool, err error)
}

type httpRequester struct {
	client  *http.Client
	baseURI string
	headers http.Header
	loggers fflog.Loggers
}

func newHTTPRequester(context subsystems.ClientContext, baseURI string) *httpRequester {
	client := context.GetHTTP().CreateHTTPClient()
	cachingClient := *client
	cachingClient.Transport = &httpcache.Transport{
		Cache:               httpcache.NewMemoryCache(),
		MarkCachedResponses: true,
		Transport:           client.Transport,
	}
	return &httpRequester{
		client:  &cachingClient,
		baseURI: baseURI,
		headers: context.GetHTTP().DefaultHeaders,
		loggers: context.GetLogging().Loggers,
	}
}

func (r *httpRequester) request() ([]st.Collection, bool, error) {
	if r.loggers.IsDebugEnabled() {
		r.loggers.Debug("polling for flag/segment updates")
	}

	reqURL := endpoints.JoinPath(r.baseURI, endpoints.PollingRequestPath)
	req, err := http.NewRequest("GET", reqURL, nil)
	if err != nil {
		return nil, false, err
	}
	if r.headers != nil {
		req.Header = maps.Clone(r.headers)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if err := checkForHTTPError(resp.StatusCode, reqURL); err != nil {
		return nil, false, err
	}

	cached := resp.Header.Get(httpcache.XFromCache) != ""
	if cached {
		return nil, true, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, err
	}
	data, err := parseAllData(body)
	if err != nil {
		return nil, false, err
	}
	return data, false, nil
}

// PollingDataSource periodically fetches the full data set over HTTP, relying on conditional
// requests (ETag/If-None-Match via httpcache) to make an unchanged poll cheap.
type PollingDataSource struct {
	updates            subsystems.DataSourceUpdateSink
	requester          requester
	pollInterval       time.Duration
	loggers            fflog.Loggers
	setInitializedOnce sync.Once
	isInitialized      atomic.Bool
	quit               chan struct{}
	closeOnce          sync.Once
}

// NewPollingDataSource creates a PollingDataSource bound to context's HTTP settings. A poll
// interval below MinimumPollInterval is raised to it and logged, per spec.md's floor on how
// aggressively polling may hit the service.
func NewPollingDataSource(
	context subsystems.ClientContext,
	updates subsystems.DataSourceUpdateSink,
	cfg PollConfig,
) *PollingDataSource {
	loggers := context.GetLogging().Loggers
	interval := cfg.PollInterval
	if interval < MinimumPollInterval {
		loggers.Warnf("polling interval %s is below the allowed minimum; using %s instead", interval, MinimumPollInterval)
		interval = MinimumPollInterval
	}
	return &PollingDataSource{
		updates:      updates,
		requester:    newHTTPRequester(context, cfg.BaseURI),
		pollInterval: interval,
		loggers:      loggers,
		quit:         make(chan struct{}),
	}
}

func (pp *PollingDataSource) IsInitialized() bool { return pp.isInitialized.Load() }

func (pp *PollingDataSource) Start(closeWhenReady chan<- struct{}) {
	pp.loggers.Infof("starting polling with interval: %s", pp.pollInterval)

	ticker := newTickerWithInitialTick(pp.pollInterval)

	go func() {
		defer ticker.Stop()

		var readyOnce sync.Once
		notifyReady := func() { readyOnce.Do(func() { close(closeWhenReady) }) }
		defer notifyReady()

		for {
			select {
			case <-pp.quit:
				return
			case <-ticker.C:
				if err := pp.poll(); err != nil {
					if stop := pp.handlePollError(err, notifyReady); stop {
						return
					}
					continue
				}
				pp.updates.UpdateStatus(interfaces.DataSourceStateValid, interfaces.DataSourceErrorInfo{})
				pp.setInitializedOnce.Do(func() {
					pp.isInitialized.Store(true)
					pp.loggers.Info("first polling request succeeded")
					notifyReady()
				})
			}
		}
	}()
}

// handlePollError reports err's status and returns true if the polling loop should stop
// permanently (an unrecoverable HTTP status), false if it should keep retrying.
func (pp *PollingDataSource) handlePollError(err error, notifyReady func()) bool {
	if hse, ok := err.(httpStatusError); ok {
		errorInfo := interfaces.DataSourceErrorInfo{
			Kind: interfaces.DataSourceErrorKindErrorResponse, StatusCode: hse.Code, Time: time.Now(),
		}
		if checkIfErrorIsRecoverableAndLog(pp.loggers, httpErrorDescription(hse.Code), pollingErrorContext, hse.Code, pollingWillRetryMessage) {
			pp.updates.UpdateStatus(interfaces.DataSourceStateInterrupted, errorInfo)
			return false
		}
		pp.updates.UpdateStatus(interfaces.DataSourceStateOff, errorInfo)
		notifyReady()
		return true
	}
	errorInfo := interfaces.DataSourceErrorInfo{Kind: interfaces.DataSourceErrorKindNetworkError, Message: err.Error(), Time: time.Now()}
	if _, ok := err.(malformedJSONError); ok {
		errorInfo.Kind = interfaces.DataSourceErrorKindInvalidData
	}
	checkIfErrorIsRecoverableAndLog(pp.loggers, err.Error(), pollingErrorContext, 0, pollingWillRetryMessage)
	pp.updates.UpdateStatus(interfaces.DataSourceStateInterrupted, errorInfo)
	return false
}

func (pp *PollingDataSource) poll() error {
	allData, cached, err := pp.requester.request()
	if err != nil {
		return err
	}
	if !cached {
		pp.updates.Init(allData)
	}
	return nil
}

func (pp *PollingDataSource) Close() error {
	pp.closeOnce.Do(func() { close(pp.quit) })
	return nil
}

// tickerWithInitialTick wraps time.Ticker so the first tick fires immediately instead of
// waiting a full interval, without disturbing the ticker's own timing afterward.
type tickerWithInitialTick struct {
	*time.Ticker
	C <-chan time.Time
}

func newTickerWithInitialTick(interval time.Duration) *tickerWithInitialTick {
	c := make(chan time.Time)
	ticker := time.NewTicker(interval)
	t := &tickerWithInitialTick{C: c, Ticker: ticker}
	go func() {
		c <- time.Now()
		for tt := range ticker.C {
			c <- tt
		}
	}()
	return t
}
