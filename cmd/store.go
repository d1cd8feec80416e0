package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/vnrates/ratecrawl/internal/config"
	"github.com/vnrates/ratecrawl/internal/store"
)

func initStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	switch sc.Driver {
	case "sqlite":
		return store.NewSQLite(sc.Path)
	case "postgres":
		return store.NewPostgres(ctx, sc.DSN())
	default:
		return nil, eris.Errorf("unsupported store driver: %s", sc.Driver)
	}
}
