package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/foremanhq/foreman/pkg/models"
)

// SaveMessage appends a message to the log. The message starts unprocessed.
func (db *DB) SaveMessage(msg *models.AgentMessage) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	if msg.Priority == "" {
		msg.Priority = models.MessagePriorityNormal
	}

	var payload interface{}
	if len(msg.Payload) > 0 {
		data, err := json.Marshal(msg.Payload)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		payload = string(data)
	}

	_, err := db.conn.Exec(`
		INSERT INTO messages (id, type, sender, recipient, created_at, payload,
			priority, requires_response, correlation_id, processed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
	`, msg.ID, string(msg.Type), msg.Sender, nullableString(msg.Recipient),
		formatTime(msg.Timestamp), payload, string(msg.Priority),
		boolToInt(msg.RequiresResponse), nullableString(msg.CorrelationID))
	if err != nil {
		return fmt.Errorf("insert message %s: %w", msg.ID, err)
	}

	return nil
}

// GetUnprocessedMessages returns pending messages addressed to the agent
// plus pending broadcasts, urgent first, then oldest first.
// An empty agentID returns every pending message.
func (db *DB) GetUnprocessedMessages(agentID string) ([]*models.AgentMessage, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	query := `
		SELECT id, type, sender, recipient, created_at, payload,
			priority, requires_response, correlation_id
		FROM messages
		WHERE processed = 0`
	var args []interface{}

	if agentID != "" {
		query += " AND (recipient = ? OR recipient IS NULL)"
		args = append(args, agentID)
	}
	query += `
		ORDER BY CASE priority WHEN 'urgent' THEN 0 WHEN 'normal' THEN 1 ELSE 2 END,
			created_at ASC`

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list unprocessed messages: %w", err)
	}
	defer rows.Close()

	var msgs []*models.AgentMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, msg)
	}

	return msgs, rows.Err()
}

// MarkMessageProcessed flags a message as consumed.
func (db *DB) MarkMessageProcessed(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.conn.Exec("UPDATE messages SET processed = 1 WHERE id = ?", id); err != nil {
		return fmt.Errorf("mark message %s processed: %w", id, err)
	}
	return nil
}

// PurgeProcessedMessages deletes processed messages older than the cutoff.
// Returns the number of messages deleted.
func (db *DB) PurgeProcessedMessages(olderThan time.Duration) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	cutoff := formatTime(time.Now().Add(-olderThan))
	result, err := db.conn.Exec(`
		DELETE FROM messages WHERE processed = 1 AND created_at < ?
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge messages: %w", err)
	}

	return result.RowsAffected()
}

// scanMessage decodes one message row.
func scanMessage(rows *sql.Rows) (*models.AgentMessage, error) {
	var msg models.AgentMessage
	var recipient, payload, correlationID sql.NullString
	var msgType, priority, createdAt string
	var requiresResponse int

	err := rows.Scan(&msg.ID, &msgType, &msg.Sender, &recipient, &createdAt,
		&payload, &priority, &requiresResponse, &correlationID)
	if err != nil {
		return nil, err
	}

	msg.Type = models.MessageType(msgType)
	msg.Recipient = recipient.String
	msg.Priority = models.MessagePriority(priority)
	msg.RequiresResponse = requiresResponse != 0
	msg.CorrelationID = correlationID.String

	if msg.Timestamp, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	if payload.Valid && payload.String != "" {
		if err := json.Unmarshal([]byte(payload.String), &msg.Payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
	}

	return &msg, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
