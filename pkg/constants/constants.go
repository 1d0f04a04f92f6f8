// Package constants defines system-wide constants for the Astra-Grid inspection service.
// This package provides type-safe constant definitions used across all modules.
package constants

import "time"

// ================================================================================
// Log Level Constants
// ================================================================================

// LogLevel represents the severity of a log entry
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelFatal
)

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey is the type used for values stored in a context.Context
type ContextKey string

const (
	// ContextKeyRequestID carries the HTTP request id
	ContextKeyRequestID ContextKey = "request_id"

	// ContextKeyScanID carries the scan id of the workflow being processed
	ContextKeyScanID ContextKey = "scan_id"

	// ContextKeyComponentID carries the component id a stage is working on
	ContextKeyComponentID ContextKey = "component_id"

	// ContextKeyTraceID carries an externally supplied trace id
	ContextKeyTraceID ContextKey = "trace_id"
)

// ================================================================================
// Extraction Constants
// ================================================================================

const (
	// ExtractionConfidenceThreshold is the minimum mean region confidence for a usable reading
	ExtractionConfidenceThreshold = 0.85

	// WeatheringConfidenceFloor marks OCR regions read through weathered labels
	WeatheringConfidenceFloor = 0.7

	// GaugeDetectionConfidence is the confidence reported for a detected analog gauge
	GaugeDetectionConfidence = 0.92

	// GaugeSweepDegrees is the full needle sweep of supported analog gauges
	GaugeSweepDegrees = 270.0
)

// ================================================================================
// Risk Constants
// ================================================================================

const (
	// RiskWarningThreshold is the inclusive lower bound of the Warning category
	RiskWarningThreshold = 0.4

	// RiskCriticalThreshold is the inclusive lower bound of the Critical category
	RiskCriticalThreshold = 0.7

	// DefaultAssessmentConfidence is reported when confidence is not derived from inputs
	DefaultAssessmentConfidence = 0.94

	// SpikeQuantile is the quantile of the current window above which a sample is a spike
	SpikeQuantile = 0.95
)

// ================================================================================
// Pipeline Defaults
// ================================================================================

const (
	// DefaultRetryBudget is the number of rescans per reading and retries per stage call
	DefaultRetryBudget = 3

	// DefaultBackoffInitial is the first wait between retries of a stage call
	DefaultBackoffInitial = 200 * time.Millisecond

	// DefaultBackoffMax caps the wait between retries
	DefaultBackoffMax = 5 * time.Second

	// DefaultComponentCount is the number of generated component ids for an unknown sector
	DefaultComponentCount = 1

	// DefaultScanListLimit caps how many archived scans are listed from storage
	DefaultScanListLimit = 100

	// DefaultStageTimeout bounds a single stage call
	DefaultStageTimeout = 30 * time.Second

	// DefaultWorkers is the number of workflows advanced concurrently
	DefaultWorkers = 4

	// DefaultQueueSize bounds the number of queued workflows
	DefaultQueueSize = 256

	// DefaultSeriesWindow is how far back the historical series reaches
	DefaultSeriesWindow = 7 * 24 * time.Hour

	// DefaultSeriesLimit caps the number of samples in one historical window
	DefaultSeriesLimit = 1000

	// DefaultArchiveTTL is how long terminal workflows stay queryable in memory
	DefaultArchiveTTL = time.Hour

	// ScanIDPrefix prefixes every scan id
	ScanIDPrefix = "SCAN"

	// CancelledReason is the failure cause of a cancelled workflow
	CancelledReason = "cancelled"
)

// ================================================================================
// Command Channel
// ================================================================================

// CommandType is the type field of a command received on the live channel
type CommandType string

const (
	CommandStatus  CommandType = "status"
	CommandExecute CommandType = "execute"
	CommandCancel  CommandType = "cancel"
)

// ================================================================================
// Cache Keys
// ================================================================================

const (
	// CacheKeySeriesPrefix prefixes cached historical series
	CacheKeySeriesPrefix = "astragrid:series:"

	// CacheKeyTwinPrefix prefixes mirrored digital twin component state
	CacheKeyTwinPrefix = "astragrid:twin:"
)

//Personal.AI order the ending
