package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-relate/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-relate/pkg/database"
	"github.com/ekaya-inc/ekaya-relate/pkg/models"
)

// AnalysisRunRepository persists analysis results in the results store.
type AnalysisRunRepository interface {
	// Save stores the run, its primary keys and its ranked candidates in one transaction.
	Save(ctx context.Context, sourceType string, result *models.AnalysisResult) error
	// GetByID loads a full result. Returns apperrors.ErrNotFound for unknown runs.
	GetByID(ctx context.Context, id uuid.UUID) (*models.AnalysisResult, error)
	// List returns the most recent run headers, newest first.
	List(ctx context.Context, limit int) ([]*models.AnalysisRun, error)
	// Delete removes a run and everything stored with it.
	Delete(ctx context.Context, id uuid.UUID) error
}

type analysisRunRepository struct {
	db *database.DB
}

// NewAnalysisRunRepository creates a new AnalysisRunRepository.
func NewAnalysisRunRepository(db *database.DB) AnalysisRunRepository {
	return &analysisRunRepository{db: db}
}

var _ AnalysisRunRepository = (*analysisRunRepository)(nil)

func (r *analysisRunRepository) Save(ctx context.Context, sourceType string, result *models.AnalysisResult) error {
	if result.RunID == uuid.Nil {
		result.RunID = uuid.New()
	}

	summary, err := json.Marshal(result.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	profiles, err := json.Marshal(nonNil(result.Profiles))
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}
	degraded, err := json.Marshal(nonNil(result.Degraded))
	if err != nil {
		return fmt.Errorf("failed to marshal degraded modes: %w", err)
	}

	return pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO relate_analysis_runs (
				id, source_type, tables, summary, profiles, degraded, started_at, finished_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			result.RunID, sourceType, nonNil(result.Tables), summary, profiles, degraded,
			result.StartedAt, result.FinishedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert analysis run: %w", err)
		}

		batch := &pgx.Batch{}
		for table, pk := range result.PrimaryKeys {
			batch.Queue(`
				INSERT INTO relate_primary_keys (run_id, table_name, column_name, tier, score)
				VALUES ($1, $2, $3, $4, $5)`,
				result.RunID, table, pk.Column, pk.Tier, pk.Score)
		}
		for rank, c := range result.Candidates {
			evidence, err := json.Marshal(c.Evidence)
			if err != nil {
				return fmt.Errorf("failed to marshal evidence for %s: %w", c.Source(), err)
			}
			var judgment []byte
			if rank < len(result.Judgments) && result.Judgments[rank] != nil {
				if judgment, err = json.Marshal(result.Judgments[rank]); err != nil {
					return fmt.Errorf("failed to marshal judgment for %s: %w", c.Source(), err)
				}
			}
			batch.Queue(`
				INSERT INTO relate_relationship_candidates (
					run_id, rank, source_table, source_column, target_table, target_column,
					confidence, cardinality, direction_rule, evidence, judgment
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
				result.RunID, rank, c.SourceTable, c.SourceColumn, c.TargetTable, c.TargetColumn,
				c.Confidence, c.Cardinality, string(c.Evidence.DirectionRule), evidence, judgment)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert primary keys and candidates: %w", err)
		}
		return nil
	})
}

func (r *analysisRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AnalysisResult, error) {
	result := &models.AnalysisResult{RunID: id, PrimaryKeys: models.PrimaryKeyAssignment{}}

	var summary, profiles, degraded []byte
	err := r.db.QueryRow(ctx, `
		SELECT tables, summary, profiles, degraded, started_at, finished_at
		FROM relate_analysis_runs
		WHERE id = $1`, id,
	).Scan(&result.Tables, &summary, &profiles, &degraded, &result.StartedAt, &result.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("analysis run %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis run: %w", err)
	}
	if err := json.Unmarshal(summary, &result.Summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
	}
	if err := json.Unmarshal(profiles, &result.Profiles); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profiles: %w", err)
	}
	if err := json.Unmarshal(degraded, &result.Degraded); err != nil {
		return nil, fmt.Errorf("failed to unmarshal degraded modes: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT table_name, column_name, tier, score
		FROM relate_primary_keys
		WHERE run_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query primary keys: %w", err)
	}
	var table string
	var pk models.PrimaryKey
	_, err = pgx.ForEachRow(rows, []any{&table, &pk.Column, &pk.Tier, &pk.Score}, func() error {
		result.PrimaryKeys[table] = pk
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan primary keys: %w", err)
	}

	candidates, judgments, err := r.getCandidates(ctx, id)
	if err != nil {
		return nil, err
	}
	result.Candidates = candidates
	result.Judgments = judgments
	return result, nil
}

func (r *analysisRunRepository) getCandidates(ctx context.Context, runID uuid.UUID) ([]*models.RelationshipCandidate, []*models.ValidationJudgment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT source_table, source_column, target_table, target_column,
		       confidence, cardinality, evidence, judgment
		FROM relate_relationship_candidates
		WHERE run_id = $1
		ORDER BY rank`, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	var (
		candidates []*models.RelationshipCandidate
		judgments  []*models.ValidationJudgment
		judged     bool
	)
	for rows.Next() {
		var c models.RelationshipCandidate
		var evidence, judgment []byte
		if err := rows.Scan(&c.SourceTable, &c.SourceColumn, &c.TargetTable, &c.TargetColumn,
			&c.Confidence, &c.Cardinality, &evidence, &judgment); err != nil {
			return nil, nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		if err := json.Unmarshal(evidence, &c.Evidence); err != nil {
			return nil, nil, fmt.Errorf("failed to unmarshal evidence: %w", err)
		}
		var j *models.ValidationJudgment
		if judgment != nil {
			judged = true
			j = &models.ValidationJudgment{}
			if err := json.Unmarshal(judgment, j); err != nil {
				return nil, nil, fmt.Errorf("failed to unmarshal judgment: %w", err)
			}
		}
		candidates = append(candidates, &c)
		judgments = append(judgments, j)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate candidates: %w", err)
	}
	if !judged {
		judgments = nil
	}
	return candidates, judgments, nil
}

func (r *analysisRunRepository) List(ctx context.Context, limit int) ([]*models.AnalysisRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, source_type, tables, summary, jsonb_array_length(degraded) > 0,
		       started_at, finished_at
		FROM relate_analysis_runs
		ORDER BY started_at DESC, id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analysis runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.AnalysisRun
	for rows.Next() {
		run := &models.AnalysisRun{}
		var summary []byte
		if err := rows.Scan(&run.ID, &run.SourceType, &run.Tables, &summary, &run.Degraded,
			&run.StartedAt, &run.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis run: %w", err)
		}
		if err := json.Unmarshal(summary, &run.Summary); err != nil {
			return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate analysis runs: %w", err)
	}
	return runs, nil
}

func (r *analysisRunRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM relate_analysis_runs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete analysis run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("analysis run %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

// nonNil keeps JSON and array columns from storing null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
