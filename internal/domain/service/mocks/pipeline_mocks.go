package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/turtacn/astragrid/internal/domain/models"
	"github.com/turtacn/astragrid/internal/domain/service"
)

type MockCaptureSource struct {
	mock.Mock
}

func (m *MockCaptureSource) Capture(ctx context.Context, sectorID, componentID string) (*service.Capture, error) {
	args := m.Called(ctx, sectorID, componentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Capture), args.Error(1)
}

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, capture *service.Capture) (*service.ExtractionResult, error) {
	args := m.Called(ctx, capture)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ExtractionResult), args.Error(1)
}

type MockRiskReasoner struct {
	mock.Mock
}

func (m *MockRiskReasoner) Assess(ctx context.Context, reading models.Reading, series models.Series) (*models.RiskAssessment, error) {
	args := m.Called(ctx, reading, series)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RiskAssessment), args.Error(1)
}

type MockComplianceValidator struct {
	mock.Mock
}

func (m *MockComplianceValidator) Audit(ctx context.Context, reading models.Reading, assessment *models.RiskAssessment) (*models.ComplianceRecord, error) {
	args := m.Called(ctx, reading, assessment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ComplianceRecord), args.Error(1)
}

func (m *MockComplianceValidator) AuditBatch(ctx context.Context, readings []models.Reading, assessments []*models.RiskAssessment) ([]*models.ComplianceRecord, error) {
	args := m.Called(ctx, readings, assessments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ComplianceRecord), args.Error(1)
}

func (m *MockComplianceValidator) Standards() []service.Standard {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]service.Standard)
}

type MockTwinGateway struct {
	mock.Mock
}

func (m *MockTwinGateway) Upsert(ctx context.Context, scanID string, reading models.Reading, record *models.ComplianceRecord, assessment *models.RiskAssessment) error {
	args := m.Called(ctx, scanID, reading, record, assessment)
	return args.Error(0)
}

func (m *MockTwinGateway) Components(ctx context.Context, sectorID string) ([]*models.TwinComponent, error) {
	args := m.Called(ctx, sectorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TwinComponent), args.Error(1)
}

func (m *MockTwinGateway) Component(ctx context.Context, componentID string) (*models.TwinComponent, error) {
	args := m.Called(ctx, componentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TwinComponent), args.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishTwinSync(ctx context.Context, event *models.TwinSyncEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockHistoricalStore struct {
	mock.Mock
}

func (m *MockHistoricalStore) GetSeries(ctx context.Context, componentID string, window time.Duration) (models.Series, error) {
	args := m.Called(ctx, componentID, window)
	return args.Get(0).(models.Series), args.Error(1)
}

func (m *MockHistoricalStore) Append(ctx context.Context, reading models.Reading) error {
	args := m.Called(ctx, reading)
	return args.Error(0)
}

type MockTwinRepository struct {
	mock.Mock
}

func (m *MockTwinRepository) Upsert(ctx context.Context, component *models.TwinComponent) error {
	args := m.Called(ctx, component)
	return args.Error(0)
}

func (m *MockTwinRepository) Get(ctx context.Context, componentID string) (*models.TwinComponent, error) {
	args := m.Called(ctx, componentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TwinComponent), args.Error(1)
}

func (m *MockTwinRepository) ListBySector(ctx context.Context, sectorID string) ([]*models.TwinComponent, error) {
	args := m.Called(ctx, sectorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TwinComponent), args.Error(1)
}

type MockScanRepository struct {
	mock.Mock
}

func (m *MockScanRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)
	return args.Error(0)
}

func (m *MockScanRepository) Get(ctx context.Context, scanID string) (*models.Workflow, error) {
	args := m.Called(ctx, scanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockScanRepository) List(ctx context.Context, limit int) ([]*models.Workflow, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Workflow), args.Error(1)
}
