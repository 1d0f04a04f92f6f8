package vision_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/astragrid/internal/config"
	"github.com/turtacn/astragrid/internal/domain/service"
	"github.com/turtacn/astragrid/internal/infrastructure/vision"
	gridErrors "github.com/turtacn/astragrid/pkg/errors"
	"github.com/turtacn/astragrid/pkg/logger"
)

func TestSimulatedSource_DeterministicAndUsable(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return at }
	a := vision.NewSimulatedSource(42, vision.WithSimulatedClock(clock))
	b := vision.NewSimulatedSource(42, vision.WithSimulatedClock(clock))

	ca, err := a.Capture(context.Background(), "B4-SECTOR-01", "C1")
	require.NoError(t, err)
	cb, err := b.Capture(context.Background(), "B4-SECTOR-01", "C1")
	require.NoError(t, err)
	assert.Equal(t, ca, cb)

	require.Len(t, ca.Regions, 2)
	for _, r := range ca.Regions {
		assert.GreaterOrEqual(t, r.Confidence, 0.85)
		assert.Less(t, r.Confidence, 0.98)
	}
	assert.Equal(t, at, ca.CapturedAt)

	res, err := service.NewRuleExtractor(logger.NewNoopLogger()).Extract(context.Background(), ca)
	require.NoError(t, err)
	assert.InDelta(t, 60, res.Reading.Temperature, 25.1)
	assert.InDelta(t, 230, res.Reading.Voltage, 10.1)
	assert.InDelta(t, 12.5, res.Reading.Current, 7.6)
}

func TestSimulatedSource_LatencyHonorsCancel(t *testing.T) {
	s := vision.NewSimulatedSource(1, vision.WithLatency(time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Capture(ctx, "B4-SECTOR-01", "C1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHTTPSource_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/capture", r.URL.Path)
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(service.Capture{
			ComponentID: req["component_id"],
			Regions:     []service.TextRegion{{Text: "Component Status: Normal", Confidence: 0.9}},
		})
	}))
	defer srv.Close()

	src := vision.NewHTTPSource(config.VisionConfig{Endpoint: srv.URL + "/", Timeout: time.Second, Retries: 2}, logger.NewNoopLogger())
	capture, err := src.Capture(context.Background(), "B4-SECTOR-01", "C1")
	require.NoError(t, err)
	assert.Equal(t, "C1", capture.ComponentID)
	assert.Equal(t, "B4-SECTOR-01", capture.SectorID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestHTTPSource_ClientErrorIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown component", http.StatusBadRequest)
	}))
	defer srv.Close()

	src := vision.NewHTTPSource(config.VisionConfig{Endpoint: srv.URL, Timeout: time.Second}, logger.NewNoopLogger())
	_, err := src.Capture(context.Background(), "B4-SECTOR-01", "C1")
	assert.Equal(t, gridErrors.KindMalformedInput, gridErrors.KindOf(err))
}

func TestHTTPSource_UnreachableIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	src := vision.NewHTTPSource(config.VisionConfig{Endpoint: url, Timeout: time.Second}, logger.NewNoopLogger())
	_, err := src.Capture(context.Background(), "B4-SECTOR-01", "C1")
	assert.True(t, gridErrors.Retryable(err))
}
