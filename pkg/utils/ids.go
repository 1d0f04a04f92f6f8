package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/turtacn/astragrid/pkg/constants"
)

// NewScanID builds a unique scan id: SCAN-<sector>-<yyyymmddhhmmss>-<8 hex>.
// The random suffix keeps ids unique when one sector is scanned twice in a second.
func NewScanID(sector string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%s-%s-%s", constants.ScanIDPrefix, sector, now.UTC().Format("20060102150405"), suffix)
}

// ComponentID builds the generated id of the index-th component of a sector (1-based).
func ComponentID(sector string, index int) string {
	return fmt.Sprintf("%s-COMP-%03d", sector, index)
}
