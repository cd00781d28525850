// Package store provides owner-scoped persistence for server configurations
// and synced stats baselines.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ServerConfig is a stored IP Office connection profile. PwdCipher holds the
// AES-GCM encrypted appliance password; the plaintext never reaches the table.
type ServerConfig struct {
	ID        uuid.UUID `json:"id"`
	Owner     string    `json:"-"`
	Name      string    `json:"name"`
	Host      string    `json:"host"`
	Username  string    `json:"username"`
	PwdCipher string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatsBaseline is the last synced user statistics snapshot for a server.
type StatsBaseline struct {
	ID             uuid.UUID `json:"id"`
	ServerConfigID uuid.UUID `json:"server_config_id"`
	Owner          string    `json:"-"`
	TotalUsers     int       `json:"total_users"`
	LicensedCount  int       `json:"licensed_count"`
	StatsJSON      []byte    `json:"stats"`
	LastSyncedAt   time.Time `json:"last_synced_at"`
}

// Querier is the storage interface used by the API handlers. Every method is
// owner-scoped: a row is only visible to the operator that created it.
type Querier interface {
	ListServerConfigs(ctx context.Context, owner string) ([]ServerConfig, error)
	GetServerConfig(ctx context.Context, owner string, id uuid.UUID) (ServerConfig, error)
	CreateServerConfig(ctx context.Context, sc ServerConfig) (ServerConfig, error)
	UpdateServerConfig(ctx context.Context, sc ServerConfig) (ServerConfig, error)
	DeleteServerConfig(ctx context.Context, owner string, id uuid.UUID) error
	GetStatsBaseline(ctx context.Context, owner string, serverConfigID uuid.UUID) (StatsBaseline, error)
	UpsertStatsBaseline(ctx context.Context, b StatsBaseline) (StatsBaseline, error)
}

// Store implements Querier against PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) ListServerConfigs(ctx context.Context, owner string) ([]ServerConfig, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, owner, name, host, username, pwd_cipher, created_at, updated_at
		FROM server_configs
		WHERE owner = $1
		ORDER BY name`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []ServerConfig
	for rows.Next() {
		var sc ServerConfig
		if err := rows.Scan(&sc.ID, &sc.Owner, &sc.Name, &sc.Host, &sc.Username,
			&sc.PwdCipher, &sc.CreatedAt, &sc.UpdatedAt); err != nil {
			return nil, err
		}
		configs = append(configs, sc)
	}
	return configs, rows.Err()
}

func (s *Store) GetServerConfig(ctx context.Context, owner string, id uuid.UUID) (ServerConfig, error) {
	var sc ServerConfig
	err := s.pool.QueryRow(ctx, `
		SELECT id, owner, name, host, username, pwd_cipher, created_at, updated_at
		FROM server_configs
		WHERE owner = $1 AND id = $2`, owner, id).
		Scan(&sc.ID, &sc.Owner, &sc.Name, &sc.Host, &sc.Username,
			&sc.PwdCipher, &sc.CreatedAt, &sc.UpdatedAt)
	return sc, err
}

func (s *Store) CreateServerConfig(ctx context.Context, sc ServerConfig) (ServerConfig, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO server_configs (owner, name, host, username, pwd_cipher)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		sc.Owner, sc.Name, sc.Host, sc.Username, sc.PwdCipher).
		Scan(&sc.ID, &sc.CreatedAt, &sc.UpdatedAt)
	return sc, err
}

func (s *Store) UpdateServerConfig(ctx context.Context, sc ServerConfig) (ServerConfig, error) {
	err := s.pool.QueryRow(ctx, `
		UPDATE server_configs
		SET name = $3, host = $4, username = $5, pwd_cipher = $6, updated_at = NOW()
		WHERE owner = $1 AND id = $2
		RETURNING created_at, updated_at`,
		sc.Owner, sc.ID, sc.Name, sc.Host, sc.Username, sc.PwdCipher).
		Scan(&sc.CreatedAt, &sc.UpdatedAt)
	return sc, err
}

func (s *Store) DeleteServerConfig(ctx context.Context, owner string, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM server_configs
		WHERE owner = $1 AND id = $2`, owner, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *Store) GetStatsBaseline(ctx context.Context, owner string, serverConfigID uuid.UUID) (StatsBaseline, error) {
	var b StatsBaseline
	err := s.pool.QueryRow(ctx, `
		SELECT id, server_config_id, owner, total_users, licensed_count, stats_json, last_synced_at
		FROM server_stats_baselines
		WHERE owner = $1 AND server_config_id = $2`, owner, serverConfigID).
		Scan(&b.ID, &b.ServerConfigID, &b.Owner, &b.TotalUsers, &b.LicensedCount,
			&b.StatsJSON, &b.LastSyncedAt)
	return b, err
}

func (s *Store) UpsertStatsBaseline(ctx context.Context, b StatsBaseline) (StatsBaseline, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO server_stats_baselines (server_config_id, owner, total_users, licensed_count, stats_json, last_synced_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (server_config_id, owner) DO UPDATE
		SET total_users = EXCLUDED.total_users,
		    licensed_count = EXCLUDED.licensed_count,
		    stats_json = EXCLUDED.stats_json,
		    last_synced_at = NOW()
		RETURNING id, last_synced_at`,
		b.ServerConfigID, b.Owner, b.TotalUsers, b.LicensedCount, b.StatsJSON).
		Scan(&b.ID, &b.LastSyncedAt)
	return b, err
}
