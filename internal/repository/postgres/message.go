package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/whisperbox/internal/domain"
	"github.com/ignite/whisperbox/internal/service/inbox"
)

// MessageRepo stores messages. It implements the intake store, the rate
// limiter's window query and inbox.Repository.
type MessageRepo struct{ db *sql.DB }

// NewMessageRepo creates a Postgres-backed message repository.
func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{db: db} }

const messageColumns = `id, recipient_id, content, sender_fingerprint, COALESCE(sender_ip, ''),
	client, is_read, is_flagged, created_at, read_at`

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	client, err := json.Marshal(m.Client)
	if err != nil {
		return fmt.Errorf("encode client context: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO messages (id, recipient_id, content, sender_fingerprint, sender_ip, client,
			device_type, source_platform, is_read, is_flagged, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false, false, $9)
	`, m.ID, m.RecipientID, m.Content, m.SenderFingerprint, nullString(m.SenderIP), client,
		string(m.Client.Device.Type), m.Client.SourcePlatform, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// WindowStats counts the fingerprint's messages across all recipients since
// the given time.
func (r *MessageRepo) WindowStats(ctx context.Context, fingerprint string, since time.Time) (int, time.Time, error) {
	var count int
	var oldest sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), MIN(created_at)
		FROM messages
		WHERE sender_fingerprint = $1 AND created_at >= $2
	`, fingerprint, since).Scan(&count, &oldest)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("rate window: %w", err)
	}
	return count, oldest.Time, nil
}

func (r *MessageRepo) List(ctx context.Context, recipientID string, q inbox.ListQuery) ([]domain.Message, error) {
	where := `recipient_id = $1`
	switch q.Filter {
	case domain.FilterUnread:
		where += ` AND is_read = false`
	case domain.FilterFlagged:
		where += ` AND is_flagged = true`
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE `+where+`
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, recipientID, q.Limit, q.Offset)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return scanMessages(rows)
}

func (r *MessageRepo) Counts(ctx context.Context, recipientID string) (inbox.Counts, error) {
	var c inbox.Counts
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE NOT is_read),
			COUNT(*) FILTER (WHERE is_flagged)
		FROM messages
		WHERE recipient_id = $1
	`, recipientID).Scan(&c.Total, &c.Unread, &c.Flagged)
	if err != nil {
		return c, fmt.Errorf("count messages: %w", err)
	}
	return c, nil
}

func (r *MessageRepo) Get(ctx context.Context, recipientID, id string) (*domain.Message, error) {
	if !validID(id) {
		return nil, inbox.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE recipient_id = $1 AND id = $2`,
		recipientID, id,
	)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, inbox.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return m, nil
}

func (r *MessageRepo) MarkRead(ctx context.Context, recipientID, id string, at time.Time) error {
	return r.updateOne(ctx,
		`UPDATE messages SET is_read = true, read_at = COALESCE(read_at, $3) WHERE recipient_id = $1 AND id = $2`,
		recipientID, id, at)
}

func (r *MessageRepo) SetFlag(ctx context.Context, recipientID, id string, flagged bool) error {
	return r.updateOne(ctx,
		`UPDATE messages SET is_flagged = $3 WHERE recipient_id = $1 AND id = $2`,
		recipientID, id, flagged)
}

func (r *MessageRepo) Delete(ctx context.Context, recipientID, id string) error {
	return r.updateOne(ctx,
		`DELETE FROM messages WHERE recipient_id = $1 AND id = $2`,
		recipientID, id)
}

func (r *MessageRepo) updateOne(ctx context.Context, query, recipientID, id string, args ...interface{}) error {
	if !validID(id) {
		return inbox.ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, query, append([]interface{}{recipientID, id}, args...)...)
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return inbox.ErrNotFound
	}
	return nil
}

func (r *MessageRepo) BySender(ctx context.Context, recipientID, fingerprint string) ([]domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE recipient_id = $1 AND sender_fingerprint = $2
		ORDER BY created_at
	`, recipientID, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("messages by sender: %w", err)
	}
	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]domain.Message, error) {
	defer rows.Close()
	var out []domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func scanMessage(row rowScanner) (*domain.Message, error) {
	var (
		m      domain.Message
		client []byte
		readAt sql.NullTime
	)
	if err := row.Scan(&m.ID, &m.RecipientID, &m.Content, &m.SenderFingerprint, &m.SenderIP,
		&client, &m.IsRead, &m.IsFlagged, &m.CreatedAt, &readAt); err != nil {
		return nil, err
	}
	if len(client) > 0 {
		if err := json.Unmarshal(client, &m.Client); err != nil {
			return nil, fmt.Errorf("decode client context: %w", err)
		}
	}
	if readAt.Valid {
		t := readAt.Time
		m.ReadAt = &t
	}
	return &m, nil
}
