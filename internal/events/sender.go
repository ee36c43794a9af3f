package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// senderTask is one worker in the fixed-size sender pool: it blocks on flushCh, formats
// whatever payload it receives, and posts it with a single retry on a recoverable failure.
type senderTask struct {
	client    *http.Client
	config    Config
	formatter eventOutputFormatter
}

func startSenderTask(config Config, flushCh <-chan *flushPayload, workers *sync.WaitGroup, responseFn func(*http.Response)) {
	t := senderTask{client: config.HTTPClient, config: config, formatter: newEventOutputFormatter(config)}
	go t.run(flushCh, responseFn, workers)
}

func (t *senderTask) run(flushCh <-chan *flushPayload, responseFn func(*http.Response), workers *sync.WaitGroup) {
	for payload := range flushCh {
		if payload.diagnosticEvent != nil {
			t.postEvents(t.config.DiagnosticURI, payload.diagnosticEvent, "diagnostic event", responseFn)
		} else {
			outputEvents := t.formatter.makeOutputEvents(payload.events, payload.summary)
			if len(outputEvents) > 0 {
				t.postEvents(t.config.EventsURI, outputEvents, fmt.Sprintf("%d events", len(outputEvents)), responseFn)
			}
		}
		workers.Done()
	}
}

// postEvents sends outputData to uri, retrying exactly once on a network error or a
// recoverable HTTP status. responseFn is invoked with the final response (success or not) so
// the dispatcher can update its "last known past time" and disabled latch.
func (t *senderTask) postEvents(uri string, outputData interface{}, description string, responseFn func(*http.Response)) {
	jsonPayload, err := json.Marshal(outputData)
	if err != nil {
		t.config.Loggers.Errorf("unexpected error marshalling %s: %s", description, err)
		return
	}

	payloadID, _ := uuid.NewRandom()

	t.config.Loggers.Debugf("sending %s", description)

	var resp *http.Response
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			t.config.Loggers.Warn("will retry posting events after 1 second")
			time.Sleep(time.Second)
		}

		req, reqErr := http.NewRequest("POST", uri, bytes.NewReader(jsonPayload))
		if reqErr != nil {
			t.config.Loggers.Errorf("unexpected error creating event request: %s", reqErr)
			return
		}
		for k, vv := range t.config.Headers {
			for _, v := range vv {
				req.Header.Add(k, v)
			}
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(eventSchemaHeader, currentEventSchema)
		req.Header.Set(payloadIDHeader, payloadID.String())

		var respErr error
		resp, respErr = t.client.Do(req)
		if resp != nil && resp.Body != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}

		if respErr != nil {
			t.config.Loggers.Warnf("error sending events: %s", respErr)
			continue
		}
		if resp.StatusCode >= 400 && isHTTPErrorRecoverable(resp.StatusCode) {
			t.config.Loggers.Warnf("received error status %d sending events", resp.StatusCode)
			continue
		}
		break
	}
	if resp != nil {
		responseFn(resp)
	}
}
