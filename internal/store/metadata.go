package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/pavelanni/tutor/internal/model"
)

// SetMetadata upserts a key-value pair in the tutor_metadata table.
func (s *Store) SetMetadata(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tutor_metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`,
		key, value, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM tutor_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetServerInfo records how the server that wrote this database was configured.
func (s *Store) SetServerInfo(ctx context.Context, info model.ServerInfo) error {
	pairs := []struct{ k, v string }{
		{"llm_provider", info.Provider},
		{"llm_model", info.Model},
		{"lang", info.Lang},
		{"started_at", info.StartedAt.UTC().Format(time.RFC3339)},
	}
	for _, p := range pairs {
		if err := s.SetMetadata(ctx, p.k, p.v); err != nil {
			return err
		}
	}
	return nil
}

// GetServerInfo reads the server configuration recorded by SetServerInfo.
func (s *Store) GetServerInfo(ctx context.Context) (model.ServerInfo, error) {
	var info model.ServerInfo
	var err error

	if info.Provider, err = s.GetMetadata(ctx, "llm_provider"); err != nil {
		return info, err
	}
	if info.Model, err = s.GetMetadata(ctx, "llm_model"); err != nil {
		return info, err
	}
	if info.Lang, err = s.GetMetadata(ctx, "lang"); err != nil {
		return info, err
	}
	started, err := s.GetMetadata(ctx, "started_at")
	if err != nil {
		return info, err
	}
	if started != "" {
		info.StartedAt, err = time.Parse(time.RFC3339, started)
		if err != nil {
			return info, err
		}
	}
	return info, nil
}
