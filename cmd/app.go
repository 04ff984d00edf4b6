package cmd

import (
	"context"
	"database/sql"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/CrowderSoup/kanban-board/config"
	"github.com/CrowderSoup/kanban-board/database"
	"github.com/CrowderSoup/kanban-board/services"
)

// app is the storage stack shared by the server and the board commands.
type app struct {
	db     *sql.DB
	redis  *redis.Client
	boards *services.BoardService
}

// openApp opens sqlite, the optional redis cache and loads the board state.
// publisher may be nil.
func openApp(ctx context.Context, cfg config.Config, publisher services.Publisher) (*app, error) {
	db, err := database.InitDB(cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}

	client, err := database.NewRedisClient(ctx, cfg.Redis.URL)
	if err != nil {
		db.Close()
		return nil, err
	}

	var store services.SnapshotStore = database.NewSnapshotService(db)
	if client != nil {
		store = database.NewCache(database.NewSnapshotService(db), client, cfg.Redis.TTL)
	}

	boards, err := services.NewBoardService(ctx, store, cfg.Storage.Key, publisher)
	if err != nil {
		if client != nil {
			client.Close()
		}
		db.Close()
		return nil, err
	}
	return &app{db: db, redis: client, boards: boards}, nil
}

func (a *app) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, a.db.Close())
	return errors.Join(errs...)
}
