package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kalambet/clipfeed/internal/content"
)

const itemColumns = `id, title, category, channel_id, tags, created_at, duration_seconds, type,
	view_count, like_count, dislike_count, comment_count, region, visibility`

// UpsertItem inserts an item or replaces the stored row with the same id.
// Missing type and visibility default to video and public.
func (s *Store) UpsertItem(it content.Item) error {
	if it.Type == "" {
		it.Type = content.TypeVideo
	}
	if it.Visibility == "" {
		it.Visibility = content.VisibilityPublic
	}
	if it.CreatedAt.IsZero() {
		it.CreatedAt = time.Now()
	}
	tags, err := encodeTags(it.Tags)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO items (`+itemColumns+`, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			category = excluded.category,
			channel_id = excluded.channel_id,
			tags = excluded.tags,
			created_at = excluded.created_at,
			duration_seconds = excluded.duration_seconds,
			type = excluded.type,
			view_count = excluded.view_count,
			like_count = excluded.like_count,
			dislike_count = excluded.dislike_count,
			comment_count = excluded.comment_count,
			region = excluded.region,
			visibility = excluded.visibility,
			updated_at = excluded.updated_at`,
		it.ID, it.Title, it.Category, it.ChannelID, tags, formatTime(it.CreatedAt), it.DurationSeconds,
		string(it.Type), it.ViewCount, it.LikeCount, it.DislikeCount, it.CommentCount, it.Region,
		string(it.Visibility), formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("upserting item %s: %w", it.ID, err)
	}
	return nil
}

func (s *Store) GetItem(id string) (content.Item, error) {
	row := s.db.QueryRow(`SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return content.Item{}, ErrNotFound
	}
	if err != nil {
		return content.Item{}, err
	}
	return it, nil
}

// ListItems returns items matching f, newest first.
func (s *Store) ListItems(f ItemFilter) ([]content.Item, error) {
	var (
		where []string
		args  []any
	)
	if f.ChannelID != "" {
		where = append(where, "channel_id = ?")
		args = append(args, f.ChannelID)
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Type))
	}
	if f.PublicOnly {
		where = append(where, "visibility = ?")
		args = append(args, string(content.VisibilityPublic))
	}

	query := `SELECT ` + itemColumns + ` FROM items`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id ASC LIMIT ?"
	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	items := []content.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *Store) DeleteItem(id string) error {
	res, err := s.db.Exec(`DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// BumpEngagement increments the counter matching an interaction kind.
// Kinds without a counter (subscribe) are a no-op.
func (s *Store) BumpEngagement(id, kind string) error {
	var column string
	switch kind {
	case "view":
		column = "view_count"
	case "like":
		column = "like_count"
	case "comment":
		column = "comment_count"
	default:
		return nil
	}
	res, err := s.db.Exec(`UPDATE items SET `+column+` = `+column+` + 1, updated_at = ? WHERE id = ?`,
		formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("bumping %s for %s: %w", column, id, err)
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(r rowScanner) (content.Item, error) {
	var (
		it              content.Item
		tags, createdAt string
		typ, visibility string
	)
	err := r.Scan(&it.ID, &it.Title, &it.Category, &it.ChannelID, &tags, &createdAt, &it.DurationSeconds,
		&typ, &it.ViewCount, &it.LikeCount, &it.DislikeCount, &it.CommentCount, &it.Region, &visibility)
	if err != nil {
		return content.Item{}, err
	}
	it.Type = content.Type(typ)
	it.Visibility = content.Visibility(visibility)
	if it.Tags, err = decodeTags(tags); err != nil {
		return content.Item{}, fmt.Errorf("item %s: %w", it.ID, err)
	}
	if it.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return content.Item{}, fmt.Errorf("item %s: %w", it.ID, err)
	}
	return it, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encoding tags: %w", err)
	}
	return string(b), nil
}

func decodeTags(raw string) ([]string, error) {
	tags := []string{}
	if raw == "" {
		return tags, nil
	}
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	return tags, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
