package events

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flagforge/flagforge-go/ldcontext"
)

func TestNullProcessorDiscardsEverything(t *testing.T) {
	p := NewNullProcessor()
	p.SendEvent(IdentifyEvent{BaseEvent: BaseEvent{Context: ldcontext.New("key")}})
	p.Flush()
	assert.NoError(t, p.Close())
}
