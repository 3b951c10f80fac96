package main

import (
	"context"

	config "github.com/taskward/taskward/internal/config/auth-service"
	pg "github.com/taskward/taskward/internal/repository/postgres"
)

func initDB(ctx context.Context, cfg *config.Config) (*pg.DB, error) {
	return pg.NewDB(ctx, cfg.DB)
}
