package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/tutoring-scheduler/internal/model"
)

const saleColumns = `id, location_id, parent_id, children, membership_id, status, activation_date, created_at`

func scanSale(row interface{ Scan(...any) error }) (model.Sale, error) {
	var (
		s          model.Sale
		children   []byte
		activation sql.NullString
	)
	if err := row.Scan(&s.ID, &s.LocationID, &s.ParentID, &children, &s.MembershipID, &s.Status, &activation, &s.CreatedAt); err != nil {
		return model.Sale{}, err
	}
	s.ActivationDate = activation.String
	if err := jsonColumn(children, &s.Children); err != nil {
		return model.Sale{}, err
	}
	return s, nil
}

// ListSales returns a parent's memberships at one location.  Activated
// sales come first, oldest activation first; ties fall back to id.
func (s *MySQLStore) ListSales(ctx context.Context, parentID, locationID string) ([]model.Sale, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+saleColumns+` FROM sales WHERE parent_id = ? AND location_id = ?
		 ORDER BY activation_date IS NULL, activation_date, id`, parentID, locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sale)
	}
	return out, rows.Err()
}

func listCredit(ctx context.Context, q querier, saleIDs []string, since string) ([]model.CreditEntry, error) {
	if len(saleIDs) == 0 {
		return nil, nil
	}
	args := append(stringArgs(saleIDs), since)
	rows, err := q.QueryContext(ctx,
		`SELECT id, sale_id, child_key, week_anchor, delta, idempotency_key, created_at
		 FROM credit_ledger WHERE sale_id IN (`+placeholders(len(saleIDs))+`) AND week_anchor >= ?
		 ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.CreditEntry
	for rows.Next() {
		var e model.CreditEntry
		if err := rows.Scan(&e.ID, &e.SaleID, &e.ChildKey, &e.WeekAnchor, &e.Delta, &e.IdempotencyKey, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListCreditEntries returns the ledger lines of saleIDs anchored on or
// after since.  Older lines stay in the table for audit.
func (s *MySQLStore) ListCreditEntries(ctx context.Context, saleIDs []string, since string) ([]model.CreditEntry, error) {
	return listCredit(ctx, s.db, saleIDs, since)
}

func lockSale(ctx context.Context, tx *sql.Tx, id string) (model.Sale, error) {
	sale, err := scanSale(tx.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = ? FOR UPDATE`, id))
	return sale, mapErr(err)
}

func creditByKey(ctx context.Context, tx *sql.Tx, key string) (model.CreditEntry, error) {
	var e model.CreditEntry
	err := tx.QueryRowContext(ctx,
		`SELECT id, sale_id, child_key, week_anchor, delta, idempotency_key, created_at
		 FROM credit_ledger WHERE idempotency_key = ?`, key).
		Scan(&e.ID, &e.SaleID, &e.ChildKey, &e.WeekAnchor, &e.Delta, &e.IdempotencyKey, &e.CreatedAt)
	return e, mapErr(err)
}

func appendCredit(ctx context.Context, tx *sql.Tx, e *model.CreditEntry) error {
	const q = `INSERT INTO credit_ledger (id, sale_id, child_key, week_anchor, delta, idempotency_key, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, UTC_TIMESTAMP(6))`
	if _, err := tx.ExecContext(ctx, q, e.ID, e.SaleID, e.ChildKey, e.WeekAnchor, e.Delta, e.IdempotencyKey); err != nil {
		return mapErr(err)
	}
	return mapErr(tx.QueryRowContext(ctx, `SELECT created_at FROM credit_ledger WHERE id = ?`, e.ID).Scan(&e.CreatedAt))
}
