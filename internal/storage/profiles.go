package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// GetProfileData returns the serialized profile for viewerKey, or "" when
// the viewer has none.
func (s *Store) GetProfileData(viewerKey string) (string, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM viewer_profiles WHERE viewer_key = ?`, viewerKey).Scan(&data)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading profile %q: %w", viewerKey, err)
	}
	return data, nil
}

func (s *Store) SetProfileData(viewerKey, data string) error {
	_, err := s.db.Exec(`
		INSERT INTO viewer_profiles (viewer_key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(viewer_key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		viewerKey, data, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("writing profile %q: %w", viewerKey, err)
	}
	return nil
}

// DeleteProfileData removes the viewer's profile and interaction log.
// Deleting a viewer with no data is not an error.
func (s *Store) DeleteProfileData(viewerKey string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning wipe transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM viewer_profiles WHERE viewer_key = ?`, viewerKey); err != nil {
		return fmt.Errorf("deleting profile %q: %w", viewerKey, err)
	}
	if _, err := tx.Exec(`DELETE FROM interactions WHERE viewer_key = ?`, viewerKey); err != nil {
		return fmt.Errorf("deleting interactions for %q: %w", viewerKey, err)
	}
	return tx.Commit()
}

// ListViewerKeys returns every viewer key with a stored profile.
func (s *Store) ListViewerKeys() ([]string, error) {
	rows, err := s.db.Query(`SELECT viewer_key FROM viewer_profiles ORDER BY viewer_key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
