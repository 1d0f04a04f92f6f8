package service

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/turtacn/astragrid/internal/domain/models"
	"github.com/turtacn/astragrid/pkg/errors"
	"github.com/turtacn/astragrid/pkg/logger"
)

//go:embed standards.yaml
var standardsYAML []byte

var categoryRank = map[models.RiskCategory]int{
	models.RiskStable:   0,
	models.RiskWarning:  1,
	models.RiskCritical: 2,
}

// ComplianceRule is a predicate over a reading and its assessment that cites one regulation.
type ComplianceRule struct {
	Name           string                 `yaml:"name"`
	Regulation     string                 `yaml:"regulation"`
	MinCategory    models.RiskCategory    `yaml:"min_category"`
	Status         models.ComponentStatus `yaml:"status"`
	ViolationType  string                 `yaml:"violation_type"`
	Severity       models.Severity        `yaml:"severity"`
	RequiredAction string                 `yaml:"required_action"`
	Extended       bool                   `yaml:"extended"`
}

// Matches reports whether the rule fires for the pair.
func (r ComplianceRule) Matches(reading models.Reading, assessment *models.RiskAssessment) bool {
	if categoryRank[assessment.Category()] < categoryRank[r.MinCategory] {
		return false
	}
	if r.Status != "" && reading.Status != r.Status {
		return false
	}
	return true
}

type ruleTable struct {
	Standards []Standard       `yaml:"standards"`
	Rules     []ComplianceRule `yaml:"rules"`
}

// LoadRuleTable parses a rule table document. Every rule must cite a known standard.
func LoadRuleTable(data []byte) ([]Standard, []ComplianceRule, error) {
	var table ruleTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, nil, fmt.Errorf("failed to parse rule table: %w", err)
	}
	known := make(map[string]bool, len(table.Standards))
	for _, s := range table.Standards {
		known[s.Code] = true
	}
	for _, r := range table.Rules {
		if !known[r.Regulation] {
			return nil, nil, fmt.Errorf("rule %q cites unknown regulation %q", r.Name, r.Regulation)
		}
		if _, ok := categoryRank[r.MinCategory]; !ok {
			return nil, nil, fmt.Errorf("rule %q has invalid min_category %q", r.Name, r.MinCategory)
		}
	}
	return table.Standards, table.Rules, nil
}

// ComplianceAuditor audits assessments against the embedded standards table.
type ComplianceAuditor struct {
	standards    []Standard
	descriptions map[string]string
	rules        []ComplianceRule
	logger       logger.Logger
}

// NewComplianceAuditor builds the auditor. Extended rules are only active when
// extended is true; the base table always applies.
func NewComplianceAuditor(log logger.Logger, extended bool) (*ComplianceAuditor, error) {
	standards, rules, err := LoadRuleTable(standardsYAML)
	if err != nil {
		return nil, err
	}
	active := make([]ComplianceRule, 0, len(rules))
	for _, r := range rules {
		if r.Extended && !extended {
			continue
		}
		active = append(active, r)
	}
	desc := make(map[string]string, len(standards))
	for _, s := range standards {
		desc[s.Code] = s.Description
	}
	return &ComplianceAuditor{
		standards:    standards,
		descriptions: desc,
		rules:        active,
		logger:       log.WithComponent("ComplianceAuditor"),
	}, nil
}

// Audit implements ComplianceValidator. The audit time is the assessment time
// so that repeated audits of the same pair are identical.
func (a *ComplianceAuditor) Audit(ctx context.Context, reading models.Reading, assessment *models.RiskAssessment) (*models.ComplianceRecord, error) {
	if assessment == nil {
		return nil, errors.ErrMalformedInput("assessment is required")
	}
	violations := make([]models.Violation, 0)
	for _, rule := range a.rules {
		if !rule.Matches(reading, assessment) {
			continue
		}
		violations = append(violations, models.Violation{
			ComponentID:    assessment.ComponentID,
			RegulationCode: rule.Regulation,
			ViolationType:  rule.ViolationType,
			Description:    a.descriptions[rule.Regulation],
			Severity:       rule.Severity,
			RequiredAction: rule.RequiredAction,
		})
	}
	record := models.NewComplianceRecord(assessment.ComponentID, violations, assessment.AssessedAt)
	if !record.Compliant() {
		a.logger.Info(ctx, "compliance violations found",
			logger.String("component_id", assessment.ComponentID),
			logger.Strings("regulations", record.Citations()),
		)
	}
	return record, nil
}

// AuditBatch implements ComplianceValidator.
func (a *ComplianceAuditor) AuditBatch(ctx context.Context, readings []models.Reading, assessments []*models.RiskAssessment) ([]*models.ComplianceRecord, error) {
	if len(readings) != len(assessments) {
		return nil, errors.ErrMalformedInput(fmt.Sprintf("batch audit: %d readings but %d assessments", len(readings), len(assessments))).
			WithMetadata("readings", len(readings)).
			WithMetadata("assessments", len(assessments))
	}
	out := make([]*models.ComplianceRecord, 0, len(readings))
	for i := range readings {
		record, err := a.Audit(ctx, readings[i], assessments[i])
		if err != nil {
			return nil, fmt.Errorf("batch audit item %d: %w", i, err)
		}
		out = append(out, record)
	}
	return out, nil
}

// Standards implements ComplianceValidator.
func (a *ComplianceAuditor) Standards() []Standard {
	return append([]Standard(nil), a.standards...)
}
