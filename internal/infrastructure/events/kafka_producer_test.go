package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/astragrid/internal/domain/models"
	gridErrors "github.com/turtacn/astragrid/pkg/errors"
	"github.com/turtacn/astragrid/pkg/logger"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaProducer_PublishTwinSync(t *testing.T) {
	w := &recordingWriter{}
	p := newKafkaProducer(w, "astragrid.twin-sync", logger.NewNoopLogger())

	component := &models.TwinComponent{
		ComponentID:  "C1",
		SectorID:     "B4-SECTOR-01",
		RiskScore:    1,
		RiskCategory: models.RiskCritical,
		Violations:   []models.Violation{{RegulationCode: "OSHA 1910.269"}},
	}
	event := models.NewTwinSyncEvent(component).WithScan("SCAN-1")
	require.NoError(t, p.PublishTwinSync(context.Background(), event))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("C1"), w.msgs[0].Key)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, "SCAN-1", decoded["scan_id"])
	assert.Equal(t, "Critical", decoded["risk_category"])
	assert.Equal(t, []interface{}{"OSHA 1910.269"}, decoded["regulatory_citations"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaProducer_WriteFailureIsRetryable(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	p := newKafkaProducer(w, "t", logger.NewNoopLogger())

	err := p.PublishTwinSync(context.Background(), models.NewTwinSyncEvent(&models.TwinComponent{ComponentID: "C1"}))
	require.Error(t, err)
	assert.Equal(t, gridErrors.KindDependencyUnavailable, gridErrors.KindOf(err))
	assert.True(t, gridErrors.Retryable(err))
}
