package donations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/go-donation-fulfillment/internal/actors"
	"github.com/ariefcatur/go-donation-fulfillment/internal/catalog"
	"github.com/ariefcatur/go-donation-fulfillment/internal/sentinel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresRepository persists donations in donations, donation_items and
// donation_status_history. The otp, items and amounts columns are written
// once in Create.
type PostgresRepository struct{ DB *pgxpool.Pool }

func (r *PostgresRepository) Create(ctx context.Context, d Donation) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO donations(id, donor_id, institute_id, supplier_id, transporter_id, request_id,
		                      status, subtotal, delivery_charge, total_amount, otp, otp_verified, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8::numeric,$9::numeric,$10::numeric,$11,$12,$13,$14)`,
		d.ID, d.DonorID, d.InstituteID, d.SupplierID, d.TransporterID, d.RequestID,
		string(d.Status), d.Subtotal.String(), d.DeliveryCharge.String(), d.TotalAmount.String(),
		d.OTP, d.OTPVerified, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return err
	}

	for i, it := range d.Items {
		if _, err = tx.Exec(ctx, `
			INSERT INTO donation_items(donation_id, position, item_type, quantity, unit, description)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			d.ID, i, string(it.Type), it.Quantity, it.Unit, it.Description); err != nil {
			return err
		}
	}
	for _, h := range d.History {
		if err = insertHistory(ctx, tx, d.ID, h); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (Donation, error) {
	out, err := r.query(ctx, `WHERE id = $1`, id)
	if err != nil {
		return Donation{}, err
	}
	if len(out) == 0 {
		return Donation{}, fmt.Errorf("%w: donation %s", sentinel.ErrNotFound, id)
	}
	return out[0], nil
}

func (r *PostgresRepository) Update(ctx context.Context, next, prev Donation) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `
		UPDATE donations SET status=$2, transporter_id=$3, otp_verified=(otp_verified OR $4), updated_at=$5
		WHERE id=$1 AND status=$6 AND transporter_id=$7`,
		next.ID, string(next.Status), next.TransporterID, next.OTPVerified, next.UpdatedAt,
		string(prev.Status), prev.TransporterID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		var cur, transporter string
		err := tx.QueryRow(ctx, `SELECT status, transporter_id FROM donations WHERE id=$1`, next.ID).Scan(&cur, &transporter)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: donation %s", sentinel.ErrNotFound, next.ID)
		}
		if err != nil {
			return err
		}
		if cur != string(prev.Status) {
			return fmt.Errorf("%w: donation %s is %s, not %s", sentinel.ErrInvalidTransition, next.ID, cur, prev.Status)
		}
		return fmt.Errorf("%w: donation %s transporter changed to %q", sentinel.ErrInvalidTransition, next.ID, transporter)
	}

	if next.Status != prev.Status && len(next.History) > 0 {
		if err := insertHistory(ctx, tx, next.ID, next.History[len(next.History)-1]); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Donation, error) {
	var (
		conds []string
		args  []any
	)
	add := func(col, v string) {
		if v == "" {
			return
		}
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	add("donor_id", f.DonorID)
	add("institute_id", f.InstituteID)
	add("supplier_id", f.SupplierID)
	add("transporter_id", f.TransporterID)
	if f.ActiveOnly {
		args = append(args, string(StatusDelivered))
		conds = append(conds, fmt.Sprintf("status <> $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	return r.query(ctx, where, args...)
}

func (r *PostgresRepository) query(ctx context.Context, where string, args ...any) ([]Donation, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, donor_id, institute_id, supplier_id, transporter_id, request_id, status,
		       subtotal::text, delivery_charge::text, total_amount::text, otp, otp_verified, created_at, updated_at
		FROM donations `+where+` ORDER BY seq`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Donation{}
	index := map[string]int{}
	for rows.Next() {
		var (
			d                   Donation
			status              string
			sub, delivery, total string
		)
		if err := rows.Scan(&d.ID, &d.DonorID, &d.InstituteID, &d.SupplierID, &d.TransporterID, &d.RequestID,
			&status, &sub, &delivery, &total, &d.OTP, &d.OTPVerified, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.Status = Status(status)
		if d.Subtotal, err = decimal.NewFromString(sub); err != nil {
			return nil, err
		}
		if d.DeliveryCharge, err = decimal.NewFromString(delivery); err != nil {
			return nil, err
		}
		if d.TotalAmount, err = decimal.NewFromString(total); err != nil {
			return nil, err
		}
		index[d.ID] = len(out)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(out))
	for _, d := range out {
		ids = append(ids, d.ID)
	}
	if err := r.loadItems(ctx, ids, out, index); err != nil {
		return nil, err
	}
	if err := r.loadHistory(ctx, ids, out, index); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresRepository) loadItems(ctx context.Context, ids []string, out []Donation, index map[string]int) error {
	rows, err := r.DB.Query(ctx, `
		SELECT donation_id, item_type, quantity, unit, description
		FROM donation_items WHERE donation_id = ANY($1) ORDER BY donation_id, position`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id, typ string
			it      catalog.Item
		)
		if err := rows.Scan(&id, &typ, &it.Quantity, &it.Unit, &it.Description); err != nil {
			return err
		}
		it.Type = catalog.ItemType(typ)
		i := index[id]
		out[i].Items = append(out[i].Items, it)
	}
	return rows.Err()
}

func (r *PostgresRepository) loadHistory(ctx context.Context, ids []string, out []Donation, index map[string]int) error {
	rows, err := r.DB.Query(ctx, `
		SELECT donation_id, status, role, at
		FROM donation_status_history WHERE donation_id = ANY($1) ORDER BY donation_id, at, id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id, status, role string
			at               time.Time
		)
		if err := rows.Scan(&id, &status, &role, &at); err != nil {
			return err
		}
		i := index[id]
		out[i].History = append(out[i].History, StatusChange{Status: Status(status), Role: actors.Role(role), At: at})
	}
	return rows.Err()
}

func insertHistory(ctx context.Context, tx pgx.Tx, donationID string, h StatusChange) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO donation_status_history(donation_id, status, role, at)
		VALUES ($1,$2,$3,$4)`, donationID, string(h.Status), string(h.Role), h.At)
	return err
}
