package models

import (
	"encoding/json"
	"time"
)

// Severity ranks a compliance violation.
type Severity string

const (
	SeverityWarning  Severity = "Warning"
	SeverityCritical Severity = "Critical"
)

// Violation cites one safety standard a component breaches.
type Violation struct {
	ComponentID    string   `json:"component"`
	RegulationCode string   `json:"regulation"`
	ViolationType  string   `json:"violation_type"`
	Description    string   `json:"description"`
	Severity       Severity `json:"severity"`
	RequiredAction string   `json:"required_action"`
}

// ComplianceRecord is the audit result of one risk assessment. Compliance is
// derived from the violation list and is never stored on its own.
type ComplianceRecord struct {
	ComponentID string      `json:"component_id"`
	Violations  []Violation `json:"violations"`
	AuditedAt   time.Time   `json:"audited_at"`
}

// NewComplianceRecord builds a record; a nil violation list becomes empty.
func NewComplianceRecord(componentID string, violations []Violation, auditedAt time.Time) *ComplianceRecord {
	if violations == nil {
		violations = []Violation{}
	}
	return &ComplianceRecord{
		ComponentID: componentID,
		Violations:  violations,
		AuditedAt:   auditedAt,
	}
}

// Compliant is true iff the record carries no violations.
func (r *ComplianceRecord) Compliant() bool {
	return len(r.Violations) == 0
}

// Citations lists the regulation codes cited by the violations, in order.
func (r *ComplianceRecord) Citations() []string {
	out := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		out = append(out, v.RegulationCode)
	}
	return out
}

// MarshalJSON adds the derived compliant flag and citations.
func (r ComplianceRecord) MarshalJSON() ([]byte, error) {
	type alias ComplianceRecord
	return json.Marshal(struct {
		alias
		Compliant           bool     `json:"compliant"`
		RegulatoryCitations []string `json:"regulatory_citations"`
	}{alias: alias(r), Compliant: r.Compliant(), RegulatoryCitations: r.Citations()})
}
