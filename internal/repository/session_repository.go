package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/tutoring-scheduler/internal/model"
)

const sessionColumns = `id, location_id, service_id, date, time, duration, tutor_name, max_students, allowed_memberships`

func scanSession(row interface{ Scan(...any) error }) (model.Session, error) {
	var (
		s       model.Session
		allowed []byte
	)
	if err := row.Scan(&s.ID, &s.LocationID, &s.ServiceID, &s.Date, &s.Time, &s.Duration, &s.TutorName, &s.MaxStudents, &allowed); err != nil {
		return model.Session{}, err
	}
	if err := jsonColumn(allowed, &s.AllowedMembershipIDs); err != nil {
		return model.Session{}, err
	}
	return s, nil
}

func getSession(ctx context.Context, q querier, id string, forUpdate bool) (model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	s, err := scanSession(q.QueryRowContext(ctx, query, id))
	return s, mapErr(err)
}

// GetSession returns a single session.
func (s *MySQLStore) GetSession(ctx context.Context, id string) (model.Session, error) {
	return getSession(ctx, s.db, id, false)
}

// ListSessions returns the sessions scheduled at a location on date.
func (s *MySQLStore) ListSessions(ctx context.Context, locationID, date string) ([]model.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE location_id = ? AND date = ?`, locationID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// CountRosters counts roster entries per session in one query.
func (s *MySQLStore) CountRosters(ctx context.Context, sessionIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return counts, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, COUNT(*) FROM session_roster WHERE session_id IN (`+placeholders(len(sessionIDs))+`) GROUP BY session_id`,
		stringArgs(sessionIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id string
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

func scanService(row interface{ Scan(...any) error }) (model.Service, error) {
	var (
		svc     model.Service
		allowed []byte
	)
	if err := row.Scan(&svc.ID, &svc.LocationID, &svc.Name, &svc.MaxStudents, &allowed); err != nil {
		return model.Service{}, err
	}
	if err := jsonColumn(allowed, &svc.AllowedMembershipIDs); err != nil {
		return model.Service{}, err
	}
	return svc, nil
}

// GetServices loads service definitions by id.  Unknown ids are absent
// from the result.
func (s *MySQLStore) GetServices(ctx context.Context, ids []string) (map[string]model.Service, error) {
	out := make(map[string]model.Service, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, location_id, name, max_students, allowed_memberships FROM services WHERE id IN (`+placeholders(len(ids))+`)`,
		stringArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out[svc.ID] = svc
	}
	return out, rows.Err()
}

func getService(ctx context.Context, q querier, id string) (model.Service, error) {
	svc, err := scanService(q.QueryRowContext(ctx,
		`SELECT id, location_id, name, max_students, allowed_memberships FROM services WHERE id = ?`, id))
	return svc, mapErr(err)
}

func listRoster(ctx context.Context, q querier, sessionID string) ([]model.RosterEntry, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, session_id, child_key, child_name, grade, parent_id, commit_key, created_at
		 FROM session_roster WHERE session_id = ? ORDER BY created_at, id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RosterEntry
	for rows.Next() {
		var e model.RosterEntry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.ChildKey, &e.ChildName, &e.Grade, &e.ParentID, &e.CommitKey, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func insertRosterEntry(ctx context.Context, tx *sql.Tx, e *model.RosterEntry) error {
	const q = `INSERT INTO session_roster (id, session_id, child_key, child_name, grade, parent_id, commit_key, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, UTC_TIMESTAMP(6))`
	if _, err := tx.ExecContext(ctx, q, e.ID, e.SessionID, e.ChildKey, e.ChildName, e.Grade, e.ParentID, e.CommitKey); err != nil {
		return mapErr(err)
	}
	return mapErr(tx.QueryRowContext(ctx, `SELECT created_at FROM session_roster WHERE id = ?`, e.ID).Scan(&e.CreatedAt))
}
