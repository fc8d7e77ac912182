package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/jackc/pgx/v5"
)

const selectRequests = `SELECT id, event_id, requester_id, created, status FROM requests`

func scanRequest(row rowScanner) (*model.Request, error) {
	var (
		r      model.Request
		status string
	)
	if err := row.Scan(&r.ID, &r.EventID, &r.RequesterID, &r.Created, &status); err != nil {
		return nil, err
	}
	r.Status = model.RequestStatus(status)
	return &r, nil
}

// RequestRepository handles persistence for participation requests.
type RequestRepository struct {
	db querier
}

// NewRequestRepository constructs a RequestRepository over a pool or a transaction.
func NewRequestRepository(db querier) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a request. The partial unique index on active requests
// turns a concurrent duplicate into model.ErrAlreadyRequested.
func (r *RequestRepository) Create(ctx context.Context, req *model.Request) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO requests (id, event_id, requester_id, created, status)
		 VALUES ($1, $2, $3, $4, $5)`,
		req.ID, req.EventID, req.RequesterID, req.Created, string(req.Status),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrAlreadyRequested
		}
		return fmt.Errorf("insert request: %w", translate(err))
	}
	return nil
}

// GetByID returns a single request or model.ErrRequestNotFound.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*model.Request, error) {
	req, err := scanRequest(r.db.QueryRow(ctx, selectRequests+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrRequestNotFound
		}
		return nil, fmt.Errorf("get request: %w", translate(err))
	}
	return req, nil
}

// GetByIDs returns the requests that exist among ids; unknown ids are skipped.
func (r *RequestRepository) GetByIDs(ctx context.Context, ids []string) ([]*model.Request, error) {
	return r.list(ctx, selectRequests+` WHERE id = ANY($1) ORDER BY created ASC, id ASC`, ids)
}

// ListByEvent returns all requests for an event, oldest first.
func (r *RequestRepository) ListByEvent(ctx context.Context, eventID string) ([]*model.Request, error) {
	return r.list(ctx, selectRequests+` WHERE event_id = $1 ORDER BY created ASC, id ASC`, eventID)
}

// ListByRequester returns all requests a user has submitted, oldest first.
func (r *RequestRepository) ListByRequester(ctx context.Context, requesterID string) ([]*model.Request, error) {
	return r.list(ctx, selectRequests+` WHERE requester_id = $1 ORDER BY created ASC, id ASC`, requesterID)
}

// FindActive returns the requester's PENDING or CONFIRMED request for the
// event, or model.ErrRequestNotFound.
func (r *RequestRepository) FindActive(ctx context.Context, requesterID, eventID string) (*model.Request, error) {
	req, err := scanRequest(r.db.QueryRow(ctx,
		selectRequests+` WHERE requester_id = $1 AND event_id = $2 AND status = ANY($3) LIMIT 1`,
		requesterID, eventID, toStrings(model.ActiveStatuses),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrRequestNotFound
		}
		return nil, fmt.Errorf("find active request: %w", translate(err))
	}
	return req, nil
}

// CountConfirmed returns the number of CONFIRMED requests for an event.
func (r *RequestRepository) CountConfirmed(ctx context.Context, eventID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM requests WHERE event_id = $1 AND status = $2`,
		eventID, string(model.RequestConfirmed),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count confirmed: %w", translate(err))
	}
	return n, nil
}

// CountConfirmedByEvents returns confirmed counts keyed by event id. Events
// without confirmed requests are absent from the map.
func (r *RequestRepository) CountConfirmedByEvents(ctx context.Context, eventIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(eventIDs))
	if len(eventIDs) == 0 {
		return counts, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT event_id, COUNT(*) FROM requests
		 WHERE event_id = ANY($1) AND status = $2
		 GROUP BY event_id`,
		eventIDs, string(model.RequestConfirmed),
	)
	if err != nil {
		return nil, fmt.Errorf("count confirmed by events: %w", translate(err))
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id string
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// UpdateStatusBatch sets status on every id in one statement. If any id is
// missing the statement still ran; callers use it inside LockEvent so the
// transaction rolls back.
func (r *RequestRepository) UpdateStatusBatch(ctx context.Context, ids []string, status model.RequestStatus) error {
	if len(ids) == 0 {
		return nil
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE requests SET status = $1 WHERE id = ANY($2)`,
		string(status), ids,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrAlreadyRequested
		}
		return fmt.Errorf("update request status: %w", translate(err))
	}
	if tag.RowsAffected() != int64(len(ids)) {
		return model.ErrRequestNotFound
	}
	return nil
}

func (r *RequestRepository) list(ctx context.Context, sql string, args ...any) ([]*model.Request, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", translate(err))
	}
	defer rows.Close()

	var reqs []*model.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}
