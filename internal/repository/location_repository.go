package repository

import (
	"context"

	"github.com/iliyamo/tutoring-scheduler/internal/model"
)

// GetLocation loads a centre together with its weekly schedule.  The
// schedule is stored as a JSON document keyed by weekday name.
func (s *MySQLStore) GetLocation(ctx context.Context, id string) (model.Location, error) {
	const q = `SELECT id, name, phone, timezone, schedule, buffer_minutes FROM locations WHERE id = ?`
	var (
		loc      model.Location
		schedule []byte
	)
	err := s.db.QueryRowContext(ctx, q, id).Scan(&loc.ID, &loc.Name, &loc.Phone, &loc.Timezone, &schedule, &loc.BufferMinutes)
	if err != nil {
		return model.Location{}, mapErr(err)
	}
	if err := jsonColumn(schedule, &loc.Schedule); err != nil {
		return model.Location{}, err
	}
	return loc, nil
}
