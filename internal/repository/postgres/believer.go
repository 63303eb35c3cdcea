package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/archetype/origin-gateway/internal/domain"
	"github.com/archetype/origin-gateway/internal/service/waitlist"
)

// uniqueViolation is the Postgres error code for a unique constraint hit.
const uniqueViolation = "23505"

// BelieverRepo implements waitlist.Repository against PostgreSQL.
//
// queue_position is never written by this code: the column defaults to a
// sequence, so Postgres is the single authority for position assignment and
// concurrent admissions cannot collide.
type BelieverRepo struct{ db *sql.DB }

// NewBelieverRepo creates a Postgres-backed believer repository.
func NewBelieverRepo(db *sql.DB) *BelieverRepo { return &BelieverRepo{db: db} }

func (r *BelieverRepo) FindByEmail(ctx context.Context, email string) (*domain.Believer, error) {
	b := &domain.Believer{}
	var metadata []byte
	var referral sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, COALESCE(ip_address,''), COALESCE(user_agent,''),
		       clearance_level, queue_position, status, referral_source,
		       metadata, created_at
		FROM believers
		WHERE email = $1
	`, email).Scan(
		&b.ID, &b.Email, &b.IPAddress, &b.UserAgent,
		&b.ClearanceLevel, &b.QueuePosition, &b.Status, &referral,
		&metadata, &b.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, waitlist.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find believer: %w", err)
	}
	if referral.Valid {
		b.ReferralSource = &referral.String
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &b.Metadata); err != nil {
			return nil, fmt.Errorf("decode believer metadata: %w", err)
		}
	}
	return b, nil
}

func (r *BelieverRepo) Insert(ctx context.Context, b *domain.Believer) (*domain.Believer, error) {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	metadata, err := json.Marshal(b.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode believer metadata: %w", err)
	}

	out := *b
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO believers
			(id, email, ip_address, user_agent, clearance_level, status,
			 referral_source, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING queue_position, created_at
	`, b.ID, b.Email, b.IPAddress, b.UserAgent, b.ClearanceLevel,
		b.Status, b.ReferralSource, metadata,
	).Scan(&out.QueuePosition, &out.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return nil, waitlist.ErrDuplicate
		}
		return nil, fmt.Errorf("insert believer: %w", err)
	}
	return &out, nil
}

func (r *BelieverRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM believers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count believers: %w", err)
	}
	return n, nil
}

func (r *BelieverRepo) Stats(ctx context.Context, recentLimit int) (*domain.WaitlistStats, error) {
	if recentLimit <= 0 {
		recentLimit = 10
	}

	st := &domain.WaitlistStats{}
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'pending'),
		       COUNT(*) FILTER (WHERE status = 'approved')
		FROM believers
	`).Scan(&st.TotalCount, &st.PendingCount, &st.ApprovedCount)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email, queue_position, status, created_at
		FROM believers
		ORDER BY created_at DESC
		LIMIT $1
	`, recentLimit)
	if err != nil {
		return nil, fmt.Errorf("recent signups: %w", err)
	}
	defer rows.Close()

	st.RecentSignups = []domain.BelieverSummary{}
	for rows.Next() {
		var s domain.BelieverSummary
		if err := rows.Scan(&s.ID, &s.Email, &s.QueuePosition, &s.Status, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan signup: %w", err)
		}
		st.RecentSignups = append(st.RecentSignups, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signups: %w", err)
	}
	return st, nil
}

func (r *BelieverRepo) UpdateStatus(ctx context.Context, id string, status domain.BelieverStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE believers SET status = $1 WHERE id = $2
	`, status, id)
	if err != nil {
		return fmt.Errorf("update believer status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update believer status: %w", err)
	}
	if n == 0 {
		return waitlist.ErrNotFound
	}
	return nil
}
