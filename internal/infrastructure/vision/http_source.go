package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/turtacn/astragrid/internal/config"
	"github.com/turtacn/astragrid/internal/domain/service"
	"github.com/turtacn/astragrid/pkg/errors"
	"github.com/turtacn/astragrid/pkg/logger"
)

// HTTPSource asks a remote vision service for captures. Transport failures
// and 5xx answers are retried by the client before surfacing as
// dependency_unavailable.
type HTTPSource struct {
	client   *retryablehttp.Client
	endpoint string
	logger   logger.Logger
}

type captureRequest struct {
	SectorID    string `json:"sector_id"`
	ComponentID string `json:"component_id"`
}

// NewHTTPSource creates a source posting to <endpoint>/capture.
func NewHTTPSource(cfg config.VisionConfig, log logger.Logger) *HTTPSource {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.Retries
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = cfg.Timeout
	client.Logger = nil

	return &HTTPSource{
		client:   client,
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		logger:   log.WithComponent("VisionHTTP"),
	}
}

var _ service.CaptureSource = (*HTTPSource)(nil)

func (s *HTTPSource) Capture(ctx context.Context, sectorID, componentID string) (*service.Capture, error) {
	body, err := json.Marshal(captureRequest{SectorID: sectorID, ComponentID: componentID})
	if err != nil {
		return nil, errors.ErrInternal("encode capture request", err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/capture", bytes.NewReader(body))
	if err != nil {
		return nil, errors.ErrInternal("build capture request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn(ctx, "vision service unreachable", logger.String("component_id", componentID), logger.Error(err))
		return nil, errors.ErrDependencyUnavailable("vision service", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		cause := fmt.Errorf("vision service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		if resp.StatusCode >= 500 {
			return nil, errors.ErrDependencyUnavailable("vision service", cause)
		}
		return nil, errors.ErrMalformedInput(cause.Error())
	}

	var capture service.Capture
	if err := json.NewDecoder(resp.Body).Decode(&capture); err != nil {
		return nil, errors.ErrDependencyUnavailable("vision service", fmt.Errorf("decode capture: %w", err))
	}
	if capture.ComponentID == "" {
		capture.ComponentID = componentID
	}
	if capture.SectorID == "" {
		capture.SectorID = sectorID
	}
	return &capture, nil
}
