package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/roamplan/go-trip-planner/internal/types"
)

// ErrArtifactNotFound is returned when no artifact exists for a run id.
var ErrArtifactNotFound = errors.New("itinerary artifact not found")

// DB is the slice of the pool the repository needs; pgxpool.Pool satisfies
// it, as does the mock pool used in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Repository = (*RepositoryImpl)(nil)

// Repository persists and retrieves planning-run artifacts.
type Repository interface {
	SaveArtifact(ctx context.Context, artifact types.ItineraryArtifact) error
	GetArtifactByRunID(ctx context.Context, runID uuid.UUID) (*types.ItineraryArtifact, error)
}

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool DB
}

func NewRepository(pgpool DB, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgpool,
	}
}

// SaveArtifact inserts one planning-run record.
func (r *RepositoryImpl) SaveArtifact(ctx context.Context, artifact types.ItineraryArtifact) error {
	query := `
        INSERT INTO itinerary_artifacts (
            id, run_id, user_query, destination, plan_count, document, created_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7
        )
    `
	_, err := r.pgpool.Exec(ctx, query,
		artifact.ID, artifact.RunID, artifact.UserQuery, artifact.Destination,
		artifact.PlanCount, artifact.Document, artifact.CreatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to save itinerary artifact",
			slog.String("run_id", artifact.RunID.String()), slog.Any("error", err))
		return fmt.Errorf("failed to save itinerary artifact: %w", err)
	}
	return nil
}

// GetArtifactByRunID retrieves the stored artifact for a planning run.
func (r *RepositoryImpl) GetArtifactByRunID(ctx context.Context, runID uuid.UUID) (*types.ItineraryArtifact, error) {
	query := `
        SELECT id, run_id, user_query, destination, plan_count, document, created_at
        FROM itinerary_artifacts
        WHERE run_id = $1
    `
	row := r.pgpool.QueryRow(ctx, query, runID)

	var artifact types.ItineraryArtifact
	err := row.Scan(
		&artifact.ID, &artifact.RunID, &artifact.UserQuery, &artifact.Destination,
		&artifact.PlanCount, &artifact.Document, &artifact.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrArtifactNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to load itinerary artifact",
			slog.String("run_id", runID.String()), slog.Any("error", err))
		return nil, fmt.Errorf("failed to load itinerary artifact: %w", err)
	}
	return &artifact, nil
}
