package source

import (
	"testing"

	"github.com/carrier-dashboard/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSubjectFor(t *testing.T) {
	tests := []struct {
		prefix, eventType, want string
	}{
		{"carriers", models.EventRecordsRefreshed, "carriers.records.refreshed"},
		{"dash", models.EventOverrideSet, "dash.chart.override.set"},
		{"dash", models.EventOverrideCleared, "dash.chart.override.cleared"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SubjectFor(tt.prefix, tt.eventType))
	}
}

func TestPublisher_DropsWithoutConnection(t *testing.T) {
	p := &Publisher{prefix: "carriers", logger: zap.NewNop()}
	assert.Equal(t, "carriers.records.refreshed", p.Subject(models.EventRecordsRefreshed))
	assert.NotPanics(t, func() {
		p.Publish(models.Event{Type: models.EventRecordsRefreshed})
		p.Close()
	})
}

func TestNewPublisher_ConnectFailure(t *testing.T) {
	_, err := NewPublisher("nats://127.0.0.1:1", "", nil)
	assert.Error(t, err)
}
