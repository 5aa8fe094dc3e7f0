package settings

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmcneish/castbridge/internal/db"
)

// SQLiteStore persists device settings through a db.DBPair.
type SQLiteStore struct {
	pair *db.DBPair
}

// NewSQLiteStore creates a Store backed by the shared SQLite database.
func NewSQLiteStore(pair *db.DBPair) *SQLiteStore {
	return &SQLiteStore{pair: pair}
}

func (store *SQLiteStore) Bitrate(deviceID string) (int, error) {
	var bitrate int
	err := store.pair.Reader().QueryRow(
		`SELECT bitrate FROM device_settings WHERE device_id = ?`, deviceID,
	).Scan(&bitrate)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return bitrate, nil
}

func (store *SQLiteStore) SetBitrate(deviceID string, bitrate int) error {
	_, err := store.pair.Writer().Exec(
		`INSERT INTO device_settings (device_id, bitrate, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(device_id) DO UPDATE SET bitrate = excluded.bitrate, updated_at = excluded.updated_at`,
		deviceID, bitrate, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}
