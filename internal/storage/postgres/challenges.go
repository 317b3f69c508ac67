package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/PREETHAM1590/waste-wise/internal/domain/models"
	"github.com/PREETHAM1590/waste-wise/internal/lib/apperr"
	"github.com/lib/pq"
)

const (
	queryCreateChallenge = `INSERT INTO challenges (id, title, description, target_count, reward_points, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	challengeColumns = `SELECT c.id, c.title, c.description, c.target_count, c.reward_points, c.start_date, c.end_date,
		COALESCE(array_agg(p.user_id ORDER BY p.joined_at) FILTER (WHERE p.user_id IS NOT NULL), '{}')
		FROM challenges c
		LEFT JOIN challenge_participants p ON p.challenge_id = c.id`

	queryGetChallenge = challengeColumns + `
		WHERE c.id = $1
		GROUP BY c.id`

	queryListActiveChallenges = challengeColumns + `
		WHERE c.start_date <= $1 AND c.end_date >= $1
		GROUP BY c.id
		ORDER BY c.start_date ASC, c.seq ASC
		LIMIT $2`

	queryChallengeExists = `SELECT EXISTS (SELECT 1 FROM challenges WHERE id = $1)`

	queryAddParticipant = `INSERT INTO challenge_participants (challenge_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (challenge_id, user_id) DO NOTHING`
)

type Challenges struct {
	db DBTX
}

func (r *Challenges) Create(ctx context.Context, c *models.Challenge) error {
	const op = "storage.postgres.Challenges.Create"

	_, err := r.db.ExecContext(ctx, queryCreateChallenge,
		c.ID, c.Title, c.Description, c.TargetCount, c.RewardPoints, c.StartDate, c.EndDate)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *Challenges) Get(ctx context.Context, id string) (*models.Challenge, error) {
	const op = "storage.postgres.Challenges.Get"

	c, err := scanChallenge(r.db.QueryRowContext(ctx, queryGetChallenge, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

func (r *Challenges) ListActive(ctx context.Context, now time.Time, limit int) (challenges []models.Challenge, err error) {
	const op = "storage.postgres.Challenges.ListActive"

	rows, err := r.db.QueryContext(ctx, queryListActiveChallenges, now, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer closeRows(rows, &err)

	challenges = []models.Challenge{}
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		challenges = append(challenges, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return challenges, nil
}

func (r *Challenges) AddParticipant(ctx context.Context, challengeID, userID string) error {
	const op = "storage.postgres.Challenges.AddParticipant"

	found, err := exists(ctx, r.db, queryChallengeExists, challengeID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}

	if _, err := r.db.ExecContext(ctx, queryAddParticipant, challengeID, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func scanChallenge(row scanner) (*models.Challenge, error) {
	var c models.Challenge
	participants := pq.StringArray{}

	if err := row.Scan(&c.ID, &c.Title, &c.Description, &c.TargetCount, &c.RewardPoints,
		&c.StartDate, &c.EndDate, &participants); err != nil {
		return nil, err
	}

	c.Participants = []string(participants)
	if c.Participants == nil {
		c.Participants = []string{}
	}

	return &c, nil
}
