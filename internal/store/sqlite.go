package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dmehra-dev/pigeon/internal/models"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// DB is the durable store behind the message API: conversations, their
// participants, and every acknowledged message.
type DB struct {
	*sql.DB
}

// Open opens (or creates) the sqlite database at path and ensures the
// schema exists.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	// WAL keeps readers unblocked while messages are inserted
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS participants (
		room_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		name TEXT,
		image TEXT,
		PRIMARY KEY (room_id, user_id),
		FOREIGN KEY (room_id) REFERENCES rooms(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL,
		from_id TEXT NOT NULL,
		to_id TEXT NOT NULL,
		content TEXT NOT NULL,
		content_type TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (room_id) REFERENCES rooms(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room_id, created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// InsertMessage assigns the server identity and timestamp to a create
// request, persists it, and returns the durable record.
func (db *DB) InsertMessage(req models.CreateMessageRequest) (*models.Message, error) {
	msg := &models.Message{
		ID:          uuid.New().String(),
		RoomID:      req.RoomID,
		FromID:      req.FromID,
		ToID:        req.ToID,
		Content:     req.Content,
		ContentType: req.ContentType,
		CreatedAt:   time.Now().UTC(),
	}

	query := `INSERT INTO messages (id, room_id, from_id, to_id, content, content_type, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := db.Exec(query, msg.ID, msg.RoomID, msg.FromID, msg.ToID, msg.Content, string(msg.ContentType), msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}
	return msg, nil
}

// ListMessages returns a conversation's messages in server order.
func (db *DB) ListMessages(roomID string) ([]models.Message, error) {
	query := `SELECT id, room_id, from_id, to_id, content, content_type, created_at
	          FROM messages WHERE room_id = ? ORDER BY created_at, id`
	rows, err := db.Query(query, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var msg models.Message
		var contentType string
		if err := rows.Scan(&msg.ID, &msg.RoomID, &msg.FromID, &msg.ToID, &msg.Content, &contentType, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.ContentType = models.ContentType(contentType)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// CreateRoom opens a conversation with its participant set in one
// transaction.
func (db *DB) CreateRoom(room *models.Room, participants []models.Participant) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO rooms (id, created_at) VALUES (?, ?)`, room.ID, room.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert room: %w", err)
	}
	for _, p := range participants {
		_, err := tx.Exec(`INSERT INTO participants (room_id, user_id, name, image) VALUES (?, ?, ?, ?)`,
			room.ID, p.User.ID, p.User.Name, p.User.Image)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}

	return tx.Commit()
}

// GetRoom retrieves a conversation and its participants.
func (db *DB) GetRoom(roomID string) (*models.Room, []models.Participant, error) {
	room := &models.Room{}
	err := db.QueryRow(`SELECT id, created_at FROM rooms WHERE id = ?`, roomID).
		Scan(&room.ID, &room.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("room not found")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get room: %w", err)
	}

	participants, err := db.GetParticipants(roomID)
	if err != nil {
		return nil, nil, err
	}
	return room, participants, nil
}

// GetParticipants returns the users in a conversation.
func (db *DB) GetParticipants(roomID string) ([]models.Participant, error) {
	rows, err := db.Query(`SELECT user_id, name, image FROM participants WHERE room_id = ? ORDER BY user_id`, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	participants := []models.Participant{}
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.User.ID, &p.User.Name, &p.User.Image); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// IsParticipant reports whether the user belongs to the conversation.
func (db *DB) IsParticipant(roomID, userID string) (bool, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM participants WHERE room_id = ? AND user_id = ?`, roomID, userID).
		Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check participant: %w", err)
	}
	return count > 0, nil
}
