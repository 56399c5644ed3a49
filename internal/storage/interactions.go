package storage

import (
	"database/sql"
	"fmt"
)

func (s *Store) SaveInteraction(i Interaction) error {
	tags, err := encodeTags(i.Tags)
	if err != nil {
		return err
	}
	var watch sql.NullFloat64
	if i.WatchDurationSeconds != nil {
		watch = sql.NullFloat64{Float64: *i.WatchDurationSeconds, Valid: true}
	}
	_, err = s.db.Exec(`
		INSERT INTO interactions (id, viewer_key, content_id, channel_id, category, tags, kind, watch_duration_seconds, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ID, i.ViewerKey, i.ContentID, i.ChannelID, i.Category, tags, i.Kind, watch, formatTime(i.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving interaction %s: %w", i.ID, err)
	}
	return nil
}

// ListInteractions returns the viewer's logged events, most recent first.
// A non-positive limit returns all of them.
func (s *Store) ListInteractions(viewerKey string, limit int) ([]Interaction, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
		SELECT id, viewer_key, content_id, channel_id, category, tags, kind, watch_duration_seconds, created_at
		FROM interactions WHERE viewer_key = ?
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, viewerKey, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing interactions: %w", err)
	}
	defer rows.Close()

	results := []Interaction{}
	for rows.Next() {
		var (
			i               Interaction
			tags, createdAt string
			watch           sql.NullFloat64
		)
		if err := rows.Scan(&i.ID, &i.ViewerKey, &i.ContentID, &i.ChannelID, &i.Category, &tags, &i.Kind, &watch, &createdAt); err != nil {
			return nil, err
		}
		if watch.Valid {
			w := watch.Float64
			i.WatchDurationSeconds = &w
		}
		if i.Tags, err = decodeTags(tags); err != nil {
			return nil, fmt.Errorf("interaction %s: %w", i.ID, err)
		}
		if i.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, fmt.Errorf("interaction %s: %w", i.ID, err)
		}
		results = append(results, i)
	}
	return results, rows.Err()
}

// DeleteInteractions drops the viewer's whole log and reports how many rows went.
func (s *Store) DeleteInteractions(viewerKey string) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM interactions WHERE viewer_key = ?`, viewerKey)
	if err != nil {
		return 0, fmt.Errorf("deleting interactions for %q: %w", viewerKey, err)
	}
	return res.RowsAffected()
}
