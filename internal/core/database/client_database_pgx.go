package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/markdave123-py/TubeSage/internal/config"
	"github.com/markdave123-py/TubeSage/internal/core"
	"github.com/markdave123-py/TubeSage/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (core.DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Channels

func (c *DatabaseClient) UpsertChannel(ctx context.Context, ch *models.Channel) error {
	if ch == nil {
		return errors.New("nil channel")
	}
	if !ch.Status.Valid() {
		return fmt.Errorf("invalid channel status %q", ch.Status)
	}
	thumbs, err := json.Marshal(ch.Thumbnails)
	if err != nil {
		return fmt.Errorf("marshal thumbnails: %w", err)
	}
	const q = `
		INSERT INTO channels (id, title, description, url, thumbnails, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title,
		    description = EXCLUDED.description,
		    url = EXCLUDED.url,
		    thumbnails = EXCLUDED.thumbnails,
		    updated_at = now()
	`
	_, err = c.db.ExecContext(ctx, q,
		ch.ID, ch.Title, ch.Description, ch.URL, thumbs, string(ch.Status))
	return err
}

func (c *DatabaseClient) GetChannelByID(ctx context.Context, id string) (*models.Channel, error) {
	const q = `
		SELECT id, title, description, url, thumbnails, status, created_at, updated_at
		FROM channels WHERE id = $1
	`
	var (
		ch     models.Channel
		thumbs []byte
		status string
	)
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&ch.ID, &ch.Title, &ch.Description, &ch.URL, &thumbs, &status, &ch.CreatedAt, &ch.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if ch.Status, err = models.ParseChannelStatus(status); err != nil {
		return nil, fmt.Errorf("channel %s: %w", id, err)
	}
	if err := json.Unmarshal(thumbs, &ch.Thumbnails); err != nil {
		return nil, fmt.Errorf("channel %s thumbnails: %w", id, err)
	}
	return &ch, nil
}

func (c *DatabaseClient) UpdateChannelStatus(ctx context.Context, id string, status models.ChannelStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid channel status %q", status)
	}
	const q = `
		UPDATE channels SET status = $2, updated_at = now() WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, id, string(status))
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("channel not found: %s", id)
	}
	return nil
}

// Onboarding requests

func (c *DatabaseClient) CreateOnboardingRequest(ctx context.Context, req *models.OnboardingRequest) error {
	if req == nil {
		return errors.New("nil onboarding request")
	}
	if !req.Status.Valid() {
		return fmt.Errorf("invalid request status %q", req.Status)
	}
	const q = `
		INSERT INTO onboarding_requests (id, channel_id, requested_by, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
	`
	_, err := c.db.ExecContext(ctx, q,
		req.ID, req.ChannelID, req.RequestedBy, string(req.Status))
	return err
}

func (c *DatabaseClient) GetOnboardingRequest(ctx context.Context, id string) (*models.OnboardingRequest, error) {
	const q = `
		SELECT id, channel_id, requested_by, status, created_at, updated_at
		FROM onboarding_requests WHERE id = $1
	`
	var (
		r      models.OnboardingRequest
		status string
	)
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&r.ID, &r.ChannelID, &r.RequestedBy, &status, &r.CreatedAt, &r.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if r.Status, err = models.ParseOnboardingStatus(status); err != nil {
		return nil, fmt.Errorf("request %s: %w", id, err)
	}
	return &r, nil
}

func (c *DatabaseClient) UpdateOnboardingRequestStatus(ctx context.Context, id string, status models.OnboardingStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid request status %q", status)
	}
	const q = `
		UPDATE onboarding_requests SET status = $2, updated_at = now() WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, id, string(status))
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("onboarding request not found: %s", id)
	}
	return nil
}

// Chats

func (c *DatabaseClient) CreateChat(ctx context.Context, chat *models.Chat) error {
	if chat == nil {
		return errors.New("nil chat")
	}
	const q = `
		INSERT INTO chats (id, vector_index_name, vector_namespace, chat_mode, expired, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
	`
	_, err := c.db.ExecContext(ctx, q,
		chat.ID, chat.VectorIndexName, chat.VectorNamespace, chat.ChatMode, chat.Expired)
	return err
}

func (c *DatabaseClient) GetChatByID(ctx context.Context, id string) (*models.Chat, error) {
	const q = `
		SELECT id, vector_index_name, vector_namespace, chat_mode, expired, created_at, updated_at
		FROM chats WHERE id = $1
	`
	var ch models.Chat
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&ch.ID, &ch.VectorIndexName, &ch.VectorNamespace, &ch.ChatMode, &ch.Expired, &ch.CreatedAt, &ch.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// AppendChatResponses appends turns in one transaction, assigning
// consecutive positions after the chat's current maximum. Append is the
// only mutation path for history.
func (c *DatabaseClient) AppendChatResponses(ctx context.Context, chatID string, turns []models.ChatResponse) error {
	if len(turns) == 0 {
		return nil
	}
	for i := range turns {
		if !turns[i].Role.Valid() {
			return fmt.Errorf("invalid role %q", turns[i].Role)
		}
		if !turns[i].Status.Valid() {
			return fmt.Errorf("invalid response status %q", turns[i].Status)
		}
	}

	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	var maxPos sql.NullInt64
	if err := tx.QueryRowContext(ctx,
		`SELECT MAX(position) FROM chat_responses WHERE chat_id = $1`, chatID,
	).Scan(&maxPos); err != nil {
		_ = tx.Rollback()
		return err
	}
	next := int(maxPos.Int64) + 1
	if !maxPos.Valid {
		next = 0
	}

	const q = `
		INSERT INTO chat_responses
			(id, chat_id, role, content, status, status_reason, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
	`
	for i := range turns {
		t := &turns[i]
		if _, err := tx.ExecContext(ctx, q,
			t.ID, chatID, string(t.Role), t.Content, string(t.Status), t.StatusReason, next,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
		next++
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE chats SET updated_at = now() WHERE id = $1`, chatID,
	); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (c *DatabaseClient) ListChatResponses(ctx context.Context, chatID string, completedOnly bool) ([]models.ChatResponse, error) {
	q := `
		SELECT id, chat_id, role, content, status, status_reason, position, created_at, updated_at
		FROM chat_responses
		WHERE chat_id = $1
	`
	if completedOnly {
		q += ` AND status = 'completed'`
	}
	q += ` ORDER BY position ASC`

	rows, err := c.db.QueryContext(ctx, q, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ChatResponse
	for rows.Next() {
		var (
			t      models.ChatResponse
			role   string
			status string
		)
		if err := rows.Scan(
			&t.ID, &t.ChatID, &role, &t.Content, &status, &t.StatusReason, &t.Position, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if t.Role, err = models.ParseMessageRole(role); err != nil {
			return nil, fmt.Errorf("chat %s: %w", chatID, err)
		}
		if t.Status, err = models.ParseChatResponseStatus(status); err != nil {
			return nil, fmt.Errorf("chat %s: %w", chatID, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Chat sessions (session -> chat binding; insert-only)

func (c *DatabaseClient) InsertChatSession(ctx context.Context, s *models.ChatSession) error {
	if s == nil {
		return errors.New("nil chat session")
	}
	const q = `
		INSERT INTO chat_sessions (id, session_id, channel_id, chat_id, updated_at)
		VALUES ($1, $2, $3, $4, now())
	`
	_, err := c.db.ExecContext(ctx, q, s.ID, s.SessionID, s.ChannelID, s.ChatID)
	return err
}

func (c *DatabaseClient) LatestChatSession(ctx context.Context, sessionID, channelID string) (*models.ChatSession, error) {
	const q = `
		SELECT id, session_id, channel_id, chat_id, updated_at
		FROM chat_sessions
		WHERE session_id = $1 AND channel_id = $2
		ORDER BY updated_at DESC
		LIMIT 1
	`
	var s models.ChatSession
	err := c.db.QueryRowContext(ctx, q, sessionID, channelID).Scan(
		&s.ID, &s.SessionID, &s.ChannelID, &s.ChatID, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Users

func (c *DatabaseClient) CreateUser(ctx context.Context, u *models.User) error {
	if u == nil {
		return errors.New("nil user")
	}
	channels, err := json.Marshal(u.ChannelIDs)
	if err != nil {
		return fmt.Errorf("marshal channel ids: %w", err)
	}
	const q = `
		INSERT INTO users (session_id, channel_ids, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (session_id) DO NOTHING
	`
	_, err = c.db.ExecContext(ctx, q, u.SessionID, channels)
	return err
}

func (c *DatabaseClient) GetUserBySession(ctx context.Context, sessionID string) (*models.User, error) {
	const q = `
		SELECT session_id, channel_ids, created_at, updated_at
		FROM users WHERE session_id = $1
	`
	var (
		u        models.User
		channels []byte
	)
	err := c.db.QueryRowContext(ctx, q, sessionID).Scan(
		&u.SessionID, &channels, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(channels, &u.ChannelIDs); err != nil {
		return nil, fmt.Errorf("user %s channel ids: %w", sessionID, err)
	}
	return &u, nil
}

// AddUserChannel records a channel into the user's added-channel set,
// creating the user row if it does not exist yet.
func (c *DatabaseClient) AddUserChannel(ctx context.Context, sessionID, channelID string) error {
	const q = `
		INSERT INTO users (session_id, channel_ids, created_at, updated_at)
		VALUES ($1, jsonb_build_array($2::text), now(), now())
		ON CONFLICT (session_id) DO UPDATE
		SET channel_ids = CASE
		        WHEN users.channel_ids ? $2 THEN users.channel_ids
		        ELSE users.channel_ids || to_jsonb($2::text)
		    END,
		    updated_at = now()
	`
	_, err := c.db.ExecContext(ctx, q, sessionID, channelID)
	return err
}

// Transcript chunks (vector store)

// InsertTranscriptChunks inserts chunks in a single transaction.
func (c *DatabaseClient) InsertTranscriptChunks(ctx context.Context, chunks []models.TranscriptChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO transcript_chunks
			(id, namespace, video_id, video_title, channel_title, position, text, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		vec := pgvector.NewVector(ch.Embedding)
		if _, err := stmt.ExecContext(ctx,
			ch.ID, ch.Namespace, ch.VideoID, ch.VideoTitle, ch.ChannelTitle, ch.Position, ch.Text, vec,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// SearchTranscriptChunks finds top-k similar chunks within a namespace
// for a query embedding. Namespaces are never mixed.
func (c *DatabaseClient) SearchTranscriptChunks(ctx context.Context, namespace string, queryVec []float32, limit int) ([]models.TranscriptChunk, error) {
	const q = `
		SELECT id, namespace, video_id, video_title, channel_title, position, text, embedding, created_at
		FROM transcript_chunks
		WHERE namespace = $1
		ORDER BY embedding <-> $2
		LIMIT $3
	`
	vec := pgvector.NewVector(queryVec)
	rows, err := c.db.QueryContext(ctx, q, namespace, vec, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TranscriptChunk
	for rows.Next() {
		var (
			ch  models.TranscriptChunk
			emb pgvector.Vector
		)
		if err := rows.Scan(
			&ch.ID, &ch.Namespace, &ch.VideoID, &ch.VideoTitle, &ch.ChannelTitle, &ch.Position, &ch.Text, &emb, &ch.CreatedAt,
		); err != nil {
			return nil, err
		}
		ch.Embedding = emb.Slice()
		out = append(out, ch)
	}
	return out, rows.Err()
}
