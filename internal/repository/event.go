package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/jackc/pgx/v5"
)

const selectEvents = `SELECT id, annotation, category_id, description, event_date, location_id,
	paid, participant_limit, request_moderation, title, initiator_id, created_on,
	published_on, state
	FROM events`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*model.Event, error) {
	var (
		e     model.Event
		state string
	)
	err := row.Scan(&e.ID, &e.Annotation, &e.CategoryID, &e.Description, &e.EventDate,
		&e.LocationID, &e.Paid, &e.ParticipantLimit, &e.RequestModeration, &e.Title,
		&e.InitiatorID, &e.CreatedOn, &e.PublishedOn, &state)
	if err != nil {
		return nil, err
	}
	e.State = model.EventState(state)
	return &e, nil
}

// EventRepository handles persistence for events.
type EventRepository struct {
	db querier
}

// NewEventRepository constructs an EventRepository over a pool or a transaction.
func NewEventRepository(db querier) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event.
func (r *EventRepository) Create(ctx context.Context, e *model.Event) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, annotation, category_id, description, event_date, location_id,
			paid, participant_limit, request_moderation, title, initiator_id, created_on,
			published_on, state)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		e.ID, e.Annotation, e.CategoryID, e.Description, e.EventDate, e.LocationID,
		e.Paid, e.ParticipantLimit, e.RequestModeration, e.Title, e.InitiatorID, e.CreatedOn,
		e.PublishedOn, string(e.State),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", translate(err))
	}
	return nil
}

// GetByID returns a single event or model.ErrEventNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx, selectEvents+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", translate(err))
	}
	return e, nil
}

// Update overwrites every mutable column of the event.
func (r *EventRepository) Update(ctx context.Context, e *model.Event) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE events SET annotation = $2, category_id = $3, description = $4, event_date = $5,
			location_id = $6, paid = $7, participant_limit = $8, request_moderation = $9,
			title = $10, published_on = $11, state = $12
		 WHERE id = $1`,
		e.ID, e.Annotation, e.CategoryID, e.Description, e.EventDate,
		e.LocationID, e.Paid, e.ParticipantLimit, e.RequestModeration,
		e.Title, e.PublishedOn, string(e.State),
	)
	if err != nil {
		return fmt.Errorf("update event: %w", translate(err))
	}
	if tag.RowsAffected() == 0 {
		return model.ErrEventNotFound
	}
	return nil
}

// List returns all events matching f ordered by event date.
func (r *EventRepository) List(ctx context.Context, f model.EventFilter) ([]*model.Event, error) {
	where, args := eventWhere(f)
	rows, err := r.db.Query(ctx, selectEvents+where+` ORDER BY event_date ASC, id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", translate(err))
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// eventWhere renders f as a WHERE clause with positional arguments.
func eventWhere(f model.EventFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if len(f.InitiatorIDs) > 0 {
		add("initiator_id = ANY($%d)", f.InitiatorIDs)
	}
	if len(f.States) > 0 {
		add("state = ANY($%d)", toStrings(f.States))
	}
	if len(f.CategoryIDs) > 0 {
		add("category_id = ANY($%d)", f.CategoryIDs)
	}
	if f.Paid != nil {
		add("paid = $%d", *f.Paid)
	}
	if f.RangeStart != nil {
		add("event_date >= $%d", *f.RangeStart)
	}
	if f.RangeEnd != nil {
		add("event_date <= $%d", *f.RangeEnd)
	}
	if f.Text != "" {
		add("(annotation ILIKE $%[1]d OR description ILIKE $%[1]d OR title ILIKE $%[1]d)",
			"%"+likeEscaper.Replace(f.Text)+"%")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
