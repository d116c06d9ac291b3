package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-relate/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-relate/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-relate/pkg/models"
	"github.com/ekaya-inc/ekaya-relate/pkg/repositories"
)

// AnalysisRequest names a source and how to reach it.
type AnalysisRequest struct {
	SourceType string         `json:"source_type"`
	Config     map[string]any `json:"config"`
}

// ProfileResult is the output of a profiling-only run.
type ProfileResult struct {
	Profiles    []*models.ColumnProfile     `json:"profiles"`
	PrimaryKeys models.PrimaryKeyAssignment `json:"primary_keys"`
}

// AnalysisService loads a source, runs the engine on it and optionally stores the result.
// The CLI, HTTP API and MCP tools all go through it.
type AnalysisService interface {
	// Analyze loads the tables of req and runs the full pipeline.
	Analyze(ctx context.Context, req AnalysisRequest, onProgress ProgressCallback) (*models.AnalysisResult, error)
	// Profile loads the tables of req and runs profiling and PK inference only.
	Profile(ctx context.Context, req AnalysisRequest) (*ProfileResult, error)
	// SourceTypes lists the loaders compiled into this binary.
	SourceTypes() []datasource.LoaderInfo
	// GetRun returns a stored run. Returns apperrors.ErrStoreDisabled without a store.
	GetRun(ctx context.Context, id uuid.UUID) (*models.AnalysisResult, error)
	// ListRuns returns stored run headers, newest first.
	ListRuns(ctx context.Context, limit int) ([]*models.AnalysisRun, error)
	// StoreEnabled reports whether results are persisted.
	StoreEnabled() bool
}

type analysisService struct {
	loaders datasource.LoaderFactoryService
	engine  RelationshipEngine
	runs    repositories.AnalysisRunRepository
	timeout time.Duration
	logger  *zap.Logger
}

// NewAnalysisService creates an AnalysisService. runs may be nil, in which case
// nothing is persisted. A zero timeout leaves the caller's deadline alone.
func NewAnalysisService(
	loaders datasource.LoaderFactoryService,
	engine RelationshipEngine,
	runs repositories.AnalysisRunRepository,
	timeout time.Duration,
	logger *zap.Logger,
) AnalysisService {
	return &analysisService{
		loaders: loaders,
		engine:  engine,
		runs:    runs,
		timeout: timeout,
		logger:  logger.Named("analysis"),
	}
}

var _ AnalysisService = (*analysisService)(nil)

func (s *analysisService) Analyze(ctx context.Context, req AnalysisRequest, onProgress ProgressCallback) (*models.AnalysisResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tables, err := s.load(ctx, req)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.AnalyzeWithProgress(ctx, tables, onProgress)
	if err != nil {
		return nil, fmt.Errorf("analyze %s source: %w", req.SourceType, err)
	}

	if s.runs != nil {
		if err := s.runs.Save(ctx, req.SourceType, result); err != nil {
			return nil, fmt.Errorf("store analysis run: %w", err)
		}
		s.logger.Debug("Stored analysis run", zap.String("run_id", result.RunID.String()))
	}
	return result, nil
}

func (s *analysisService) Profile(ctx context.Context, req AnalysisRequest) (*ProfileResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tables, err := s.load(ctx, req)
	if err != nil {
		return nil, err
	}

	profiles, pks, err := s.engine.ProfileTables(ctx, tables)
	if err != nil {
		return nil, fmt.Errorf("profile %s source: %w", req.SourceType, err)
	}
	return &ProfileResult{Profiles: profiles, PrimaryKeys: pks}, nil
}

func (s *analysisService) SourceTypes() []datasource.LoaderInfo {
	return s.loaders.ListTypes()
}

func (s *analysisService) GetRun(ctx context.Context, id uuid.UUID) (*models.AnalysisResult, error) {
	if s.runs == nil {
		return nil, apperrors.ErrStoreDisabled
	}
	return s.runs.GetByID(ctx, id)
}

func (s *analysisService) ListRuns(ctx context.Context, limit int) ([]*models.AnalysisRun, error) {
	if s.runs == nil {
		return nil, apperrors.ErrStoreDisabled
	}
	return s.runs.List(ctx, limit)
}

func (s *analysisService) StoreEnabled() bool {
	return s.runs != nil
}

func (s *analysisService) load(ctx context.Context, req AnalysisRequest) ([]datasource.Table, error) {
	if req.SourceType == "" {
		return nil, fmt.Errorf("source type is required: %w", apperrors.ErrUnsupportedSource)
	}
	if req.Config == nil {
		req.Config = map[string]any{}
	}
	return s.loaders.LoadTables(ctx, req.SourceType, req.Config)
}

func (s *analysisService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}
