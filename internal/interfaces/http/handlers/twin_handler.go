package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/astragrid/internal/domain/models"
	"github.com/turtacn/astragrid/internal/domain/service"
	"github.com/turtacn/astragrid/pkg/errors"
	"github.com/turtacn/astragrid/pkg/utils"
)

// TwinReader reads the digital twin.
type TwinReader interface {
	Components(ctx context.Context, sectorID string) ([]*models.TwinComponent, error)
	Component(ctx context.Context, componentID string) (*models.TwinComponent, error)
}

// StandardsSource lists the compliance rule table.
type StandardsSource interface {
	Standards() []service.Standard
}

// TwinHandler serves the read side of the digital twin and the standards table.
type TwinHandler struct {
	twin      TwinReader
	standards StandardsSource
}

// NewTwinHandler creates a new TwinHandler.
func NewTwinHandler(twin TwinReader, standards StandardsSource) *TwinHandler {
	return &TwinHandler{twin: twin, standards: standards}
}

// ListComponents lists twin components, optionally filtered by the sector query parameter.
func (h *TwinHandler) ListComponents(c *gin.Context) {
	sector := c.Query("sector")
	if sector != "" && !utils.ValidateSectorFormat(sector) {
		respondError(c, errors.ErrInvalidSector(sector))
		return
	}
	components, err := h.twin.Components(c.Request.Context(), sector)
	if err != nil {
		respondError(c, err)
		return
	}
	if components == nil {
		components = []*models.TwinComponent{}
	}
	respond(c, http.StatusOK, gin.H{"components": components, "total": len(components)})
}

// GetComponent returns the latest twin state of one component.
func (h *TwinHandler) GetComponent(c *gin.Context) {
	component, err := h.twin.Component(c.Request.Context(), c.Param("component_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, component)
}

// ListStandards returns the regulation codes the auditor checks against.
func (h *TwinHandler) ListStandards(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{"standards": h.standards.Standards()})
}
