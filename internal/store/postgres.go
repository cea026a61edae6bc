package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const scenarioColumns = `scenario_id, name, description, w1a, w2a, alpha, beta,
	created_by, created_at, updated_at`

func (s *PostgresStore) CreateScenario(ctx context.Context, sc *Scenario) error {
	return s.pool.QueryRow(ctx, `
		INSERT INTO economy_scenarios (name, description, w1a, w2a, alpha, beta, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING scenario_id, created_at, updated_at`,
		sc.Name, sc.Description,
		sc.Params.W1A, sc.Params.W2A, sc.Params.Alpha, sc.Params.Beta,
		nullString(sc.CreatedBy),
	).Scan(&sc.ID, &sc.CreatedAt, &sc.UpdatedAt)
}

func (s *PostgresStore) GetScenario(ctx context.Context, id uuid.UUID) (*Scenario, error) {
	sc, err := scanScenario(s.pool.QueryRow(ctx, `
		SELECT `+scenarioColumns+`
		FROM economy_scenarios WHERE scenario_id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sc, nil
}

func (s *PostgresStore) ListScenarios(ctx context.Context, filter ScenarioFilter) ([]*Scenario, error) {
	query := `SELECT ` + scenarioColumns + ` FROM economy_scenarios WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.Name != "" {
		n++
		query += fmt.Sprintf(" AND name ILIKE $%d", n)
		args = append(args, "%"+filter.Name+"%")
	}
	if filter.CreatedBy != "" {
		n++
		query += fmt.Sprintf(" AND created_by = $%d", n)
		args = append(args, filter.CreatedBy)
	}

	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	n++
	query += fmt.Sprintf(" LIMIT $%d", n)
	args = append(args, limit)

	if filter.Offset > 0 {
		n++
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Scenario
	for rows.Next() {
		sc, err := scanScenario(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateScenario(ctx context.Context, sc *Scenario) error {
	err := s.pool.QueryRow(ctx, `
		UPDATE economy_scenarios SET
			name = $2, description = $3,
			w1a = $4, w2a = $5, alpha = $6, beta = $7,
			updated_at = now()
		WHERE scenario_id = $1
		RETURNING created_at, updated_at`,
		sc.ID, sc.Name, sc.Description,
		sc.Params.W1A, sc.Params.W2A, sc.Params.Alpha, sc.Params.Beta,
	).Scan(&sc.CreatedAt, &sc.UpdatedAt)
	if err == pgx.ErrNoRows {
		return ErrNotFound
	}
	return err
}

func (s *PostgresStore) DeleteScenario(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM economy_scenarios WHERE scenario_id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanScenario(row pgx.Row) (*Scenario, error) {
	sc := &Scenario{}
	var createdBy sql.NullString
	if err := row.Scan(
		&sc.ID, &sc.Name, &sc.Description,
		&sc.Params.W1A, &sc.Params.W2A, &sc.Params.Alpha, &sc.Params.Beta,
		&createdBy, &sc.CreatedAt, &sc.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if createdBy.Valid {
		sc.CreatedBy = createdBy.String
	}
	return sc, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
