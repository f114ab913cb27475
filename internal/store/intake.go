package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"driply/internal/model"
)

// IntakeStore is the append-only per-day consumption ledger.
type IntakeStore struct {
	db *sql.DB
}

func NewIntakeStore(db *sql.DB) *IntakeStore {
	return &IntakeStore{db: db}
}

// Add logs one drink at the given instant.
func (s *IntakeStore) Add(amountMl int, at time.Time) (*model.IntakeEvent, error) {
	event := &model.IntakeEvent{
		ID:         uuid.NewString(),
		AmountMl:   amountMl,
		OccurredAt: at,
		DayKey:     model.DayKey(at),
	}
	_, err := s.db.Exec(
		`INSERT INTO intake_events (id, amount_ml, occurred_at, day_key) VALUES (?, ?, ?, ?)`,
		event.ID, event.AmountMl, event.OccurredAt.UTC(), event.DayKey,
	)
	if err != nil {
		return nil, fmt.Errorf("add intake event: %w", err)
	}
	return event, nil
}

// TotalForDay sums the amounts logged under the given day key.
func (s *IntakeStore) TotalForDay(dayKey string) (int, error) {
	var total int
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(amount_ml), 0) FROM intake_events WHERE day_key = ?`, dayKey,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total intake for day: %w", err)
	}
	return total, nil
}

// LastForDay returns the most recent event of the day, or nil when nothing
// has been logged yet.
func (s *IntakeStore) LastForDay(dayKey string) (*model.IntakeEvent, error) {
	var e model.IntakeEvent
	err := s.db.QueryRow(
		`SELECT id, amount_ml, occurred_at, day_key FROM intake_events
		 WHERE day_key = ? ORDER BY occurred_at DESC LIMIT 1`, dayKey,
	).Scan(&e.ID, &e.AmountMl, &e.OccurredAt, &e.DayKey)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last intake for day: %w", err)
	}
	return &e, nil
}

// ListForDay returns the day's events in chronological order.
func (s *IntakeStore) ListForDay(dayKey string) ([]model.IntakeEvent, error) {
	rows, err := s.db.Query(
		`SELECT id, amount_ml, occurred_at, day_key FROM intake_events
		 WHERE day_key = ? ORDER BY occurred_at`, dayKey,
	)
	if err != nil {
		return nil, fmt.Errorf("list intake for day: %w", err)
	}
	defer rows.Close()
	return scanIntakeEvents(rows)
}

// ListRange returns events whose day key falls in [fromDay, toDay],
// chronologically.
func (s *IntakeStore) ListRange(fromDay, toDay string) ([]model.IntakeEvent, error) {
	rows, err := s.db.Query(
		`SELECT id, amount_ml, occurred_at, day_key FROM intake_events
		 WHERE day_key >= ? AND day_key <= ? ORDER BY occurred_at`, fromDay, toDay,
	)
	if err != nil {
		return nil, fmt.Errorf("list intake range: %w", err)
	}
	defer rows.Close()
	return scanIntakeEvents(rows)
}

// ClearDay deletes every event logged under the given day key.
func (s *IntakeStore) ClearDay(dayKey string) error {
	_, err := s.db.Exec(`DELETE FROM intake_events WHERE day_key = ?`, dayKey)
	if err != nil {
		return fmt.Errorf("clear intake for day: %w", err)
	}
	return nil
}

func scanIntakeEvents(rows *sql.Rows) ([]model.IntakeEvent, error) {
	var events []model.IntakeEvent
	for rows.Next() {
		var e model.IntakeEvent
		if err := rows.Scan(&e.ID, &e.AmountMl, &e.OccurredAt, &e.DayKey); err != nil {
			return nil, fmt.Errorf("scan intake event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
