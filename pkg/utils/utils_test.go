package utils_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/astragrid/pkg/errors"
	"github.com/turtacn/astragrid/pkg/utils"
)

func TestValidateSectorFormat(t *testing.T) {
	assert.True(t, utils.ValidateSectorFormat("B4-SECTOR-01"))
	assert.True(t, utils.ValidateSectorFormat("Z12-SECTOR-99"))
	assert.False(t, utils.ValidateSectorFormat("b4-SECTOR-01"))
	assert.False(t, utils.ValidateSectorFormat("B4-SECTOR-1"))
	assert.False(t, utils.ValidateSectorFormat("B4-ZONE-01"))
	assert.False(t, utils.ValidateSectorFormat(""))
}

func TestValidateStruct(t *testing.T) {
	type request struct {
		Sector   string `validate:"required,sector"`
		Priority string `validate:"omitempty,oneof=low medium high"`
	}

	assert.Nil(t, utils.ValidateStruct(request{Sector: "B4-SECTOR-01", Priority: "high"}))

	err := utils.ValidateStruct(request{Sector: "bad", Priority: "urgent"})
	require.NotNil(t, err)
	assert.Equal(t, errors.KindMalformedInput, err.Kind())
	assert.Equal(t, "must look like B4-SECTOR-01", err.Metadata()["sector"])
	assert.Contains(t, err.Error(), "priority must be one of")
}

func TestNewScanID(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 30, 45, 0, time.UTC)
	a := utils.NewScanID("B4-SECTOR-01", now)
	b := utils.NewScanID("B4-SECTOR-01", now)

	assert.True(t, strings.HasPrefix(a, "SCAN-B4-SECTOR-01-20260301123045-"))
	assert.Len(t, a, len("SCAN-B4-SECTOR-01-20260301123045-")+8)
	assert.NotEqual(t, a, b)
}

func TestComponentID(t *testing.T) {
	assert.Equal(t, "B4-SECTOR-01-COMP-001", utils.ComponentID("B4-SECTOR-01", 1))
	assert.Equal(t, "B4-SECTOR-01-COMP-018", utils.ComponentID("B4-SECTOR-01", 18))
}
