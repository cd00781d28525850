package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/dlt194/ipn-webmanager/internal/store"
)

// MockQuerier is a mock implementation of store.Querier
type MockQuerier struct {
	ListServerConfigsFunc   func(ctx context.Context, owner string) ([]store.ServerConfig, error)
	GetServerConfigFunc     func(ctx context.Context, owner string, id uuid.UUID) (store.ServerConfig, error)
	CreateServerConfigFunc  func(ctx context.Context, sc store.ServerConfig) (store.ServerConfig, error)
	UpdateServerConfigFunc  func(ctx context.Context, sc store.ServerConfig) (store.ServerConfig, error)
	DeleteServerConfigFunc  func(ctx context.Context, owner string, id uuid.UUID) error
	GetStatsBaselineFunc    func(ctx context.Context, owner string, serverConfigID uuid.UUID) (store.StatsBaseline, error)
	UpsertStatsBaselineFunc func(ctx context.Context, b store.StatsBaseline) (store.StatsBaseline, error)
}

func (m *MockQuerier) ListServerConfigs(ctx context.Context, owner string) ([]store.ServerConfig, error) {
	if m.ListServerConfigsFunc != nil {
		return m.ListServerConfigsFunc(ctx, owner)
	}
	return nil, nil
}

func (m *MockQuerier) GetServerConfig(ctx context.Context, owner string, id uuid.UUID) (store.ServerConfig, error) {
	if m.GetServerConfigFunc != nil {
		return m.GetServerConfigFunc(ctx, owner, id)
	}
	return store.ServerConfig{}, nil
}

func (m *MockQuerier) CreateServerConfig(ctx context.Context, sc store.ServerConfig) (store.ServerConfig, error) {
	if m.CreateServerConfigFunc != nil {
		return m.CreateServerConfigFunc(ctx, sc)
	}
	return sc, nil
}

func (m *MockQuerier) UpdateServerConfig(ctx context.Context, sc store.ServerConfig) (store.ServerConfig, error) {
	if m.UpdateServerConfigFunc != nil {
		return m.UpdateServerConfigFunc(ctx, sc)
	}
	return sc, nil
}

func (m *MockQuerier) DeleteServerConfig(ctx context.Context, owner string, id uuid.UUID) error {
	if m.DeleteServerConfigFunc != nil {
		return m.DeleteServerConfigFunc(ctx, owner, id)
	}
	return nil
}

func (m *MockQuerier) GetStatsBaseline(ctx context.Context, owner string, serverConfigID uuid.UUID) (store.StatsBaseline, error) {
	if m.GetStatsBaselineFunc != nil {
		return m.GetStatsBaselineFunc(ctx, owner, serverConfigID)
	}
	return store.StatsBaseline{}, nil
}

func (m *MockQuerier) UpsertStatsBaseline(ctx context.Context, b store.StatsBaseline) (store.StatsBaseline, error) {
	if m.UpsertStatsBaselineFunc != nil {
		return m.UpsertStatsBaselineFunc(ctx, b)
	}
	return b, nil
}
