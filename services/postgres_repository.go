package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"meetscribe/models"
)

const meetingsSchema = `
CREATE TABLE IF NOT EXISTS meetings (
    meeting_id    TEXT PRIMARY KEY,
    title         TEXT NOT NULL,
    meeting_date  TEXT NOT NULL DEFAULT '',
    summary       JSON,
    transcription JSON,
    client_ts     TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL,
    updated_at    TIMESTAMPTZ NOT NULL
)`

// OpenPostgres connects and pings the database. sslmode defaults to disable
// when the DSN does not set it.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	connStr := dsn
	if !strings.Contains(dsn, "sslmode=") {
		switch {
		case strings.Contains(dsn, "://") && strings.Contains(dsn, "?"):
			connStr += "&sslmode=disable"
		case strings.Contains(dsn, "://"):
			connStr += "?sslmode=disable"
		default:
			connStr += " sslmode=disable"
		}
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// PostgresMeetingRepository stores meetings in a table whose primary key
// enforces one row per meeting id. JSON columns keep the submitted text as is.
type PostgresMeetingRepository struct {
	db    *sql.DB
	clock Clock
}

func NewPostgresMeetingRepository(db *sql.DB, clock Clock) *PostgresMeetingRepository {
	return &PostgresMeetingRepository{db: db, clock: clockOrDefault(clock)}
}

// EnsureSchema creates the meetings table if needed.
func (r *PostgresMeetingRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, meetingsSchema); err != nil {
		return fmt.Errorf("create meetings table: %w", err)
	}
	log.Ctx(ctx).Debug().Msg("meetings schema ready")
	return nil
}

func (r *PostgresMeetingRepository) Get(ctx context.Context, meetingID string) (*models.Meeting, error) {
	var (
		m                      models.Meeting
		summary, transcription []byte
	)
	err := r.db.QueryRowContext(ctx, `
        SELECT meeting_id, title, meeting_date, summary, transcription, client_ts, created_at, updated_at
        FROM meetings
        WHERE meeting_id = $1
    `, meetingID).Scan(&m.MeetingID, &m.Title, &m.Date, &summary, &transcription, &m.Timestamp, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMeetingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get meeting %s: %w", meetingID, err)
	}
	m.Summary = summary
	m.Transcription = transcription
	return &m, nil
}

// CreateIfAbsent inserts the row unless the id is taken. A conflicting insert
// returns no row.
func (r *PostgresMeetingRepository) CreateIfAbsent(ctx context.Context, nm models.NewMeeting) (*models.Meeting, error) {
	m := newMeetingRecord(nm, r.clock)

	err := r.db.QueryRowContext(ctx, `
        INSERT INTO meetings
        (meeting_id, title, meeting_date, summary, transcription, client_ts, created_at, updated_at)
        VALUES ($1, $2, $3, $4::json, $5::json, $6, $7, $7)
        ON CONFLICT (meeting_id) DO NOTHING
        RETURNING created_at, updated_at
    `, m.MeetingID, m.Title, m.Date, jsonParam(m.Summary), jsonParam(m.Transcription), m.Timestamp, m.CreatedAt,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMeetingExists
	}
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrMeetingExists
		}
		return nil, fmt.Errorf("insert meeting %s: %w", nm.MeetingID, err)
	}
	return m, nil
}

func jsonParam(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

var _ MeetingRepository = (*PostgresMeetingRepository)(nil)
