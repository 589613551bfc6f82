package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/go-donation-fulfillment/internal/sentinel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct{ DB *pgxpool.Pool }

func (s *PostgresStore) CreateRequest(ctx context.Context, r InstituteRequest) error {
	items, err := json.Marshal(r.Items)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
		INSERT INTO institute_requests(id, institute_id, items, urgency, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		r.ID, r.InstituteID, items, string(r.Urgency), string(r.Status), r.CreatedAt)
	return err
}

func (s *PostgresStore) GetRequest(ctx context.Context, id string) (InstituteRequest, error) {
	out, err := s.listRequests(ctx, `WHERE id = $1`, id)
	if err != nil {
		return InstituteRequest{}, err
	}
	if len(out) == 0 {
		return InstituteRequest{}, fmt.Errorf("%w: institute request %s", sentinel.ErrNotFound, id)
	}
	return out[0], nil
}

func (s *PostgresStore) MarkRequestFulfilled(ctx context.Context, id string, at time.Time) (bool, error) {
	ct, err := s.DB.Exec(ctx, `
		UPDATE institute_requests SET status='fulfilled', fulfilled_at=$2
		WHERE id=$1 AND status='pending'`, id, at)
	if err != nil {
		return false, err
	}
	if ct.RowsAffected() == 1 {
		return true, nil
	}
	return false, s.exists(ctx, "institute_requests", id)
}

func (s *PostgresStore) ListRequests(ctx context.Context, f RequestFilter) ([]InstituteRequest, error) {
	where, args := filterClause(map[string]string{"institute_id": f.InstituteID, "status": string(f.Status)})
	return s.listRequests(ctx, where, args...)
}

func (s *PostgresStore) listRequests(ctx context.Context, where string, args ...any) ([]InstituteRequest, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, institute_id, items, urgency, status, created_at, fulfilled_at
		FROM institute_requests `+where+` ORDER BY seq`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []InstituteRequest{}
	for rows.Next() {
		var (
			r               InstituteRequest
			items           []byte
			urgency, status string
		)
		if err := rows.Scan(&r.ID, &r.InstituteID, &items, &urgency, &status, &r.CreatedAt, &r.FulfilledAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(items, &r.Items); err != nil {
			return nil, fmt.Errorf("decode items of %s: %w", r.ID, err)
		}
		r.Urgency = Urgency(urgency)
		r.Status = RequestStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateOpportunity(ctx context.Context, o VolunteerOpportunity) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO volunteer_opportunities(id, institute_id, title, description, skills, date, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		o.ID, o.InstituteID, o.Title, o.Description, o.Skills, o.Date, string(o.Status), o.CreatedAt)
	return err
}

func (s *PostgresStore) GetOpportunity(ctx context.Context, id string) (VolunteerOpportunity, error) {
	out, err := s.listOpportunities(ctx, `WHERE id = $1`, id)
	if err != nil {
		return VolunteerOpportunity{}, err
	}
	if len(out) == 0 {
		return VolunteerOpportunity{}, fmt.Errorf("%w: volunteer opportunity %s", sentinel.ErrNotFound, id)
	}
	return out[0], nil
}

func (s *PostgresStore) MarkOpportunityFilled(ctx context.Context, id string, at time.Time) (bool, error) {
	ct, err := s.DB.Exec(ctx, `
		UPDATE volunteer_opportunities SET status='filled', filled_at=$2
		WHERE id=$1 AND status='open'`, id, at)
	if err != nil {
		return false, err
	}
	if ct.RowsAffected() == 1 {
		return true, nil
	}
	return false, s.exists(ctx, "volunteer_opportunities", id)
}

func (s *PostgresStore) ListOpportunities(ctx context.Context, f OpportunityFilter) ([]VolunteerOpportunity, error) {
	where, args := filterClause(map[string]string{"institute_id": f.InstituteID, "status": string(f.Status)})
	return s.listOpportunities(ctx, where, args...)
}

func (s *PostgresStore) listOpportunities(ctx context.Context, where string, args ...any) ([]VolunteerOpportunity, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, institute_id, title, description, skills, date, status, created_at, filled_at
		FROM volunteer_opportunities `+where+` ORDER BY seq`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []VolunteerOpportunity{}
	for rows.Next() {
		var (
			o      VolunteerOpportunity
			status string
		)
		if err := rows.Scan(&o.ID, &o.InstituteID, &o.Title, &o.Description, &o.Skills, &o.Date, &status, &o.CreatedAt, &o.FilledAt); err != nil {
			return nil, err
		}
		o.Status = OpportunityStatus(status)
		out = append(out, o)
	}
	return out, rows.Err()
}

// exists returns ErrNotFound when id is absent from table, nil otherwise.
func (s *PostgresStore) exists(ctx context.Context, table, id string) error {
	var one int
	err := s.DB.QueryRow(ctx, `SELECT 1 FROM `+table+` WHERE id=$1`, id).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", sentinel.ErrNotFound, strings.TrimSuffix(table, "s"), id)
	}
	return err
}

func filterClause(eq map[string]string) (string, []any) {
	var (
		conds []string
		args  []any
	)
	for _, col := range []string{"institute_id", "status"} {
		v := eq[col]
		if v == "" {
			continue
		}
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}
