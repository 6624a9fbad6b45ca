package videostore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skylight-video/backend/internal/models"
)

// PostgresStore implements Store on a videos table. Pagination is keyset on
// video_id, so the continuation token is the base64 of the last seen ID.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed record store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const videoColumns = `video_id, title, status, input_key, COALESCE(output_key,''), COALESCE(error_message,''), created_at, updated_at`

func scanVideo(row pgx.Row) (*models.Video, error) {
	var v models.Video
	err := row.Scan(&v.VideoID, &v.Title, &v.Status, &v.InputKey, &v.OutputKey, &v.ErrorMessage, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Create inserts a fresh record.
func (s *PostgresStore) Create(ctx context.Context, video *models.Video) error {
	const q = `INSERT INTO videos (video_id, title, status, input_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.pool.Exec(ctx, q, video.VideoID, video.Title, video.Status, video.InputKey, video.CreatedAt, video.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert video: %w", err)
	}
	return nil
}

// Get returns the current record or ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, videoID string) (*models.Video, error) {
	q := `SELECT ` + videoColumns + ` FROM videos WHERE video_id = $1`
	v, err := scanVideo(s.pool.QueryRow(ctx, q, videoID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select video: %w", err)
	}
	return v, nil
}

// MarkProcessing transitions PENDING -> PROCESSING.
func (s *PostgresStore) MarkProcessing(ctx context.Context, videoID string) error {
	const q = `UPDATE videos SET status = $1, updated_at = NOW() WHERE video_id = $2 AND status = $3`
	return s.transition(ctx, videoID, q, models.VideoStatusProcessing, videoID, models.VideoStatusPending)
}

// MarkReady transitions PROCESSING -> READY and records the manifest key.
func (s *PostgresStore) MarkReady(ctx context.Context, videoID, outputKey string) error {
	const q = `UPDATE videos SET status = $1, output_key = $2, updated_at = NOW() WHERE video_id = $3 AND status = $4`
	return s.transition(ctx, videoID, q, models.VideoStatusReady, outputKey, videoID, models.VideoStatusProcessing)
}

// MarkFailed transitions PROCESSING -> ERROR and records the failure cause.
func (s *PostgresStore) MarkFailed(ctx context.Context, videoID, errorMessage string) error {
	const q = `UPDATE videos SET status = $1, error_message = $2, updated_at = NOW() WHERE video_id = $3 AND status = $4`
	return s.transition(ctx, videoID, q, models.VideoStatusError, errorMessage, videoID, models.VideoStatusProcessing)
}

// transition runs a conditional UPDATE. Zero rows affected means the
// condition failed; a follow-up existence check tells a missing record apart
// from a stale status.
func (s *PostgresStore) transition(ctx context.Context, videoID, query string, args ...any) error {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if _, err := s.Get(ctx, videoID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return ErrStaleTransition
}

// List pages through the table in video_id order.
func (s *PostgresStore) List(ctx context.Context, limit int, token string) (Page, error) {
	cursor := ""
	if token != "" {
		raw, err := base64.StdEncoding.DecodeString(token)
		if err != nil || len(raw) == 0 {
			return Page{}, ErrBadToken
		}
		cursor = string(raw)
	}

	// Fetch one extra row to learn whether another page remains.
	q := `SELECT ` + videoColumns + ` FROM videos WHERE video_id > $1 ORDER BY video_id LIMIT $2`
	rows, err := s.pool.Query(ctx, q, cursor, limit+1)
	if err != nil {
		return Page{}, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	var page Page
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return Page{}, fmt.Errorf("scan video: %w", err)
		}
		page.Items = append(page.Items, *v)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("list videos: %w", err)
	}

	if len(page.Items) > limit {
		page.Items = page.Items[:limit]
		last := page.Items[len(page.Items)-1].VideoID
		page.NextToken = base64.StdEncoding.EncodeToString([]byte(last))
	}
	return page, nil
}
