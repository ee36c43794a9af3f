package events

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flagforge/flagforge-go/ldvalue"
)

func TestDiagnosticsManagerCreateInitEvent(t *testing.T) {
	m := NewDiagnosticsManager("sdk-key", ldvalue.Null(), 1000)
	event := m.CreateInitEvent()

	assert.Equal(t, "diagnostic-init", event.Kind)
	assert.Equal(t, uint64(1000), event.CreationDate)
	assert.Equal(t, "Go", event.Platform.Name)
	assert.NotEmpty(t, event.ID.DiagnosticID)
	assert.Equal(t, "dk-key", event.ID.SDKKeySuffix)
}

func TestDiagnosticsManagerCreateStatsEventAndReset(t *testing.T) {
	m := NewDiagnosticsManager("sdk-key", ldvalue.Null(), 1000)

	event1 := m.CreateStatsEventAndReset(5000, 3, 2, 7)
	assert.Equal(t, "diagnostic", event1.Kind)
	assert.Equal(t, uint64(1000), event1.DataSinceDate)
	assert.Equal(t, uint64(5000), event1.CreationDate)
	assert.Equal(t, 3, event1.DroppedEvents)
	assert.Equal(t, 2, event1.DeduplicatedUsers)
	assert.Equal(t, 7, event1.EventsInLastBatch)

	event2 := m.CreateStatsEventAndReset(9000, 0, 0, 0)
	assert.Equal(t, uint64(5000), event2.DataSinceDate)
	assert.Equal(t, 0, event2.DroppedEvents)
}

func TestNewDiagnosticIDUsesSDKKeySuffix(t *testing.T) {
	id := newDiagnosticID("1234567890")
	assert.Equal(t, "567890", id.SDKKeySuffix)

	shortID := newDiagnosticID("abc")
	assert.Equal(t, "abc", shortID.SDKKeySuffix)
}
