package gallery

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/inkstudio/internal/dbx"
	"github.com/dmitrijs2005/inkstudio/internal/server/models"
)

const selectColumns = `id, image_url, title, description, tags, sort_order, created_by, created_at, updated_at`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, item *models.GalleryItem) error {
	tags, err := encodeTags(item.Tags)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO gallery_items (id, image_url, title, description, tags, sort_order, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.db.ExecContext(ctx, query,
		item.ID, item.ImageURL, item.Title, item.Description, tags, item.Order,
		item.CreatedBy, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.GalleryItem, error) {
	query := `SELECT ` + selectColumns + ` FROM gallery_items WHERE id = $1`

	item, err := scanItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, dbx.NotFound(err)
	}
	return item, nil
}

// Update overwrites the mutable fields of an existing item.
func (r *PostgresRepository) Update(ctx context.Context, item *models.GalleryItem) error {
	tags, err := encodeTags(item.Tags)
	if err != nil {
		return err
	}

	query := `
		UPDATE gallery_items
		SET title = $2, description = $3, tags = $4, sort_order = $5, updated_at = $6
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		item.ID, item.Title, item.Description, tags, item.Order, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExpectOneRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM gallery_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExpectOneRow(res)
}

func (r *PostgresRepository) SetOrder(ctx context.Context, id string, order int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE gallery_items SET sort_order = $2, updated_at = now() WHERE id = $1`, id, order)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExpectOneRow(res)
}

func (r *PostgresRepository) ListAfter(ctx context.Context, after *models.Position, limit int) ([]*models.GalleryItem, error) {
	var (
		rows *sql.Rows
		err  error
	)

	if after == nil {
		query := `SELECT ` + selectColumns + ` FROM gallery_items
			ORDER BY created_at DESC, id DESC LIMIT $1`
		rows, err = r.db.QueryContext(ctx, query, limit)
	} else {
		query := `SELECT ` + selectColumns + ` FROM gallery_items
			WHERE (created_at, id) < ($1, $2)
			ORDER BY created_at DESC, id DESC LIMIT $3`
		rows, err = r.db.QueryContext(ctx, query, after.CreatedAt, after.ID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select gallery items: %w", err)
	}
	return collect(rows)
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]*models.GalleryItem, error) {
	query := `SELECT ` + selectColumns + ` FROM gallery_items ORDER BY sort_order ASC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select gallery items: %w", err)
	}
	return collect(rows)
}

func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM gallery_items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (*models.GalleryItem, error) {
	var (
		item models.GalleryItem
		tags []byte
	)
	if err := s.Scan(&item.ID, &item.ImageURL, &item.Title, &item.Description, &tags,
		&item.Order, &item.CreatedBy, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &item.Tags); err != nil {
			return nil, fmt.Errorf("decode tags of %s: %w", item.ID, err)
		}
	}
	return &item, nil
}

func collect(rows *sql.Rows) ([]*models.GalleryItem, error) {
	defer rows.Close()

	var result []*models.GalleryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(b), nil
}
