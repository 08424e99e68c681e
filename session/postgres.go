package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/woltwatch/core/logger"
	"github.com/m3rciful/woltwatch/wolt"
)

// PostgresStore keeps sessions in the sessions table, one row per chat.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type sessionRow struct {
	ChatID  int64          `db:"chat_id"`
	State   string         `db:"state"`
	Venues  sql.NullString `db:"venues"`
	PageNum int            `db:"page_num"`
	Tracked sql.NullString `db:"tracked"`
}

// Get returns the session for a chat, or nil when none exists.
func (s *PostgresStore) Get(ctx context.Context, chatID int64) (*Session, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row,
		`SELECT chat_id, state, venues, page_num, tracked FROM sessions WHERE chat_id = $1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get", chatID, err)
	}
	return rowToSession(row)
}

// Set upserts the session record for a chat.
func (s *PostgresStore) Set(ctx context.Context, chatID int64, sess *Session) error {
	if sess == nil {
		return s.Clear(ctx, chatID)
	}

	venues, tracked, err := encodeSession(sess)
	if err != nil {
		return fmt.Errorf("session encode: %w", err)
	}

	start := time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (chat_id, state, venues, page_num, tracked, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (chat_id) DO UPDATE
		SET state = EXCLUDED.state,
		    venues = EXCLUDED.venues,
		    page_num = EXCLUDED.page_num,
		    tracked = EXCLUDED.tracked,
		    updated_at = now()`,
		chatID, string(sess.State), venues, sess.PageNum, tracked)
	if err != nil {
		return storeErr("set", chatID, err)
	}

	logger.DB.Debug("session saved",
		slog.String("event", "session.set"),
		slog.Int64("chat_id", chatID),
		slog.String("state", string(sess.State)),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// Clear removes the session for a chat.
func (s *PostgresStore) Clear(ctx context.Context, chatID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE chat_id = $1`, chatID); err != nil {
		return storeErr("clear", chatID, err)
	}
	return nil
}

// Tracking lists all chats with a session in the tracking state.
func (s *PostgresStore) Tracking(ctx context.Context) ([]Tracked, error) {
	var rows []sessionRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT chat_id, state, venues, page_num, tracked FROM sessions WHERE state = $1`,
		string(StateTracking))
	if err != nil {
		return nil, fmt.Errorf("%w: tracking: %v", ErrUnavailable, err)
	}

	var out []Tracked
	for _, row := range rows {
		sess, err := rowToSession(row)
		if err != nil {
			return nil, err
		}
		if sess.Tracked == nil {
			// Inconsistent row; skip rather than fail the whole resume.
			logger.DB.Warn("tracking session without venue",
				slog.String("event", "session.tracking"),
				slog.Int64("chat_id", row.ChatID),
			)
			continue
		}
		out = append(out, Tracked{ChatID: row.ChatID, Venue: *sess.Tracked})
	}
	return out, nil
}

func encodeSession(sess *Session) (venues, tracked sql.NullString, err error) {
	if len(sess.Venues) > 0 {
		data, mErr := json.Marshal(sess.Venues)
		if mErr != nil {
			return venues, tracked, mErr
		}
		venues = sql.NullString{String: string(data), Valid: true}
	}
	if sess.Tracked != nil {
		data, mErr := json.Marshal(sess.Tracked)
		if mErr != nil {
			return venues, tracked, mErr
		}
		tracked = sql.NullString{String: string(data), Valid: true}
	}
	return venues, tracked, nil
}

func rowToSession(row sessionRow) (*Session, error) {
	sess := &Session{
		State:   State(row.State),
		PageNum: row.PageNum,
	}
	if row.Venues.Valid {
		if err := json.Unmarshal([]byte(row.Venues.String), &sess.Venues); err != nil {
			return nil, fmt.Errorf("session decode venues: %w", err)
		}
	}
	if row.Tracked.Valid {
		var v wolt.Venue
		if err := json.Unmarshal([]byte(row.Tracked.String), &v); err != nil {
			return nil, fmt.Errorf("session decode tracked: %w", err)
		}
		sess.Tracked = &v
	}
	return sess, nil
}

func storeErr(op string, chatID int64, err error) error {
	logger.DB.Error("session store failure",
		slog.String("event", "session."+op),
		slog.Int64("chat_id", chatID),
		slog.String("err", err.Error()),
	)
	return fmt.Errorf("%w: %s chat %d: %v", ErrUnavailable, op, chatID, err)
}
