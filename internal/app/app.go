package app

import (
	"context"
	"log"
	"time"

	"github.com/nvoskov/chatsplit/internal/config"
	"github.com/nvoskov/chatsplit/internal/core"
	"github.com/nvoskov/chatsplit/internal/core/cache"
	db "github.com/nvoskov/chatsplit/internal/core/database"
	objectclient "github.com/nvoskov/chatsplit/internal/core/object-client"
)

type App struct {
	DBClient     core.DbClient
	ObjectClient core.ObjectClient
	Cache        *cache.Cache
	Server       *Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Database initialized and ready.")

	// Archive storage is optional: runs still complete without it, the
	// ZIP is just not persisted.
	var objClient core.ObjectClient
	if cfg.AwsAccessKey != "" && cfg.AwsSecretKey != "" && cfg.BucketName != "" {
		objClient, err = objectclient.NewS3Client(appCtx, cfg)
		if err != nil {
			return nil, err
		}
		log.Println("Object client initialized and ready.")
	} else {
		log.Println("Archive storage not configured; skipping S3.")
	}

	// Preview cache is optional too.
	var previewCache *cache.Cache
	if cfg.RedisAddr != "" {
		previewCache, err = cache.New(appCtx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		log.Println("Preview cache initialized and ready.")
	}

	server := NewServer(cfg, dbClient, objClient, previewCache)

	return &App{
		DBClient:     dbClient,
		ObjectClient: objClient,
		Cache:        previewCache,
		Server:       server,
	}, nil
}

func (a *App) Close() {
	if a.Cache != nil {
		_ = a.Cache.Close()
	}
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
