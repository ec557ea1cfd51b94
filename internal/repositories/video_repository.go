package repositories

import (
	"context"
	"errors"

	"vodworks/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrVideoNotFound = errors.New("video not found")

type VideoRepository struct {
	db *pgxpool.Pool
}

func NewVideoRepository(db *pgxpool.Pool) *VideoRepository {
	return &VideoRepository{db: db}
}

func (r *VideoRepository) Create(ctx context.Context, v *models.Video) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO videos (id, title, description, filename, original_filename, file_size, status, user_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at
	`, v.ID, v.Title, v.Description, v.Filename, v.OriginalFilename, v.FileSize, v.Status, v.UserID).
		Scan(&v.CreatedAt, &v.UpdatedAt)
}

func (r *VideoRepository) Get(ctx context.Context, id string) (*models.Video, error) {
	var v models.Video
	err := r.db.QueryRow(ctx, `
		SELECT id, title, description, filename, original_filename, file_size,
		       duration, thumbnail_path, hls_playlist_path, status, user_id, created_at, updated_at
		FROM videos
		WHERE id=$1
	`, id).Scan(
		&v.ID,
		&v.Title,
		&v.Description,
		&v.Filename,
		&v.OriginalFilename,
		&v.FileSize,
		&v.Duration,
		&v.ThumbnailPath,
		&v.HLSPlaylistPath,
		&v.Status,
		&v.UserID,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVideoNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (r *VideoRepository) ListByUser(ctx context.Context, userID string, limit, offset int64) (*models.VideoPage, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, title, description, filename, original_filename, file_size,
		       duration, thumbnail_path, hls_playlist_path, status, user_id, created_at, updated_at
		FROM videos
		WHERE user_id=$1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	videos := []models.Video{}
	for rows.Next() {
		var v models.Video
		if err := rows.Scan(
			&v.ID,
			&v.Title,
			&v.Description,
			&v.Filename,
			&v.OriginalFilename,
			&v.FileSize,
			&v.Duration,
			&v.ThumbnailPath,
			&v.HLSPlaylistPath,
			&v.Status,
			&v.UserID,
			&v.CreatedAt,
			&v.UpdatedAt,
		); err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM videos WHERE user_id=$1`, userID).Scan(&total); err != nil {
		return nil, err
	}

	totalPages := (total + limit - 1) / limit
	currentPage := offset/limit + 1

	return &models.VideoPage{
		Videos: videos,
		Pagination: models.PaginationMeta{
			Total:       total,
			Limit:       limit,
			Offset:      offset,
			CurrentPage: currentPage,
			TotalPages:  totalPages,
			HasNext:     currentPage < totalPages,
			HasPrevious: currentPage > 1,
		},
	}, nil
}

func (r *VideoRepository) UpdateStatus(ctx context.Context, id string, status models.VideoStatus) error {
	_, err := r.db.Exec(ctx, `
		UPDATE videos
		SET status=$1, updated_at=NOW()
		WHERE id=$2
	`, status, id)
	return err
}

// CommitProcessingResult writes the final metadata of a processing run and
// the ready status in a single statement, so no reader ever observes a video
// with only some of the derived fields set. It returns the number of rows
// updated so the caller can notice a video deleted mid-run without failing.
func (r *VideoRepository) CommitProcessingResult(ctx context.Context, id string, duration *int, thumbnailPath, hlsPlaylistPath *string) (int64, error) {
	cmd, err := r.db.Exec(ctx, `
		UPDATE videos
		SET duration=$1, thumbnail_path=$2, hls_playlist_path=$3, status=$4, updated_at=NOW()
		WHERE id=$5
	`, duration, thumbnailPath, hlsPlaylistPath, models.StatusReady, id)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *VideoRepository) UpdateDetails(ctx context.Context, id string, title string, description *string) (*models.Video, error) {
	var v models.Video
	err := r.db.QueryRow(ctx, `
		UPDATE videos
		SET title=$1, description=$2, updated_at=NOW()
		WHERE id=$3
		RETURNING id, title, description, filename, original_filename, file_size,
		          duration, thumbnail_path, hls_playlist_path, status, user_id, created_at, updated_at
	`, title, description, id).Scan(
		&v.ID,
		&v.Title,
		&v.Description,
		&v.Filename,
		&v.OriginalFilename,
		&v.FileSize,
		&v.Duration,
		&v.ThumbnailPath,
		&v.HLSPlaylistPath,
		&v.Status,
		&v.UserID,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVideoNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (r *VideoRepository) Delete(ctx context.Context, id, userID string) (bool, error) {
	cmd, err := r.db.Exec(ctx, `
		DELETE FROM videos
		WHERE id=$1 AND user_id=$2
	`, id, userID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}
