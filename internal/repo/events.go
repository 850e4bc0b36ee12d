package repo

import (
	"context"
	"database/sql"

	"staffline/internal/domain"
)

// LatestEvents returns up to limit events, newest first. A non-empty
// entityKind narrows the result to that kind.
func (r Repo) LatestEvents(ctx context.Context, entityKind string, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT id,ts,type,entity_kind,entity_id,actor_id,payload_json FROM events`
	args := []any{}
	if entityKind != "" {
		q += ` WHERE entity_kind=?`
		args = append(args, entityKind)
	}
	q += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Event{}
	for rows.Next() {
		var e domain.Event
		var entityID sql.NullInt64
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &entityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		e.EntityID = entityID.Int64
		res = append(res, e)
	}
	return res, rows.Err()
}
