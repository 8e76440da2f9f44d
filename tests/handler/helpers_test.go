package handler_test

import (
	"context"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

// gormFixture keeps the raw handle around for seeding rows directly
type gormFixture struct {
	db *gorm.DB
}

func chiRouteContext(ctx context.Context, rctx *chi.Context) context.Context {
	return context.WithValue(ctx, chi.RouteCtxKey, rctx)
}
