package server_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"agro-crm/internal/blob"
	"agro-crm/internal/config"
	"agro-crm/internal/consultant"
	"agro-crm/internal/database"
	"agro-crm/internal/dto"
	"agro-crm/internal/phenology"
	"agro-crm/internal/server"
	"agro-crm/internal/testutil"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageCatalogFallsBackWhenRedisIsDown(t *testing.T) {
	db := testutil.OpenDB(t)
	static, err := phenology.DefaultCatalog()
	require.NoError(t, err)
	require.NoError(t, database.Seed(db, &config.Config{AdminEmail: "admin@test.local", AdminPassword: "secret123"}, static))

	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	catalog := server.NewStageCatalog(ctx, db, rdb, time.Minute)
	got, err := catalog.StagesFor(ctx, phenology.Corn)
	require.NoError(t, err)
	want, err := static.StagesFor(ctx, phenology.Corn)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRouterUsesInjectedCatalog(t *testing.T) {
	cfg := &config.Config{
		JWTSecret:          "jwt-secret",
		JWTExpirationHours: 1,
		SessionSecret:      "session-secret",
		AdminEmail:         "admin@test.local",
		AdminPassword:      "secret123",
	}
	db := testutil.OpenDB(t)
	static, err := phenology.DefaultCatalog()
	require.NoError(t, err)
	require.NoError(t, database.Seed(db, cfg, static))

	r, err := server.NewRouter(server.Deps{
		Config:      cfg,
		DB:          db,
		Blobs:       blob.NewMemory(),
		Consultants: consultant.NewDirectory(nil),
		Catalog: phenology.NewStaticCatalog(map[phenology.Crop][]phenology.Stage{
			phenology.Corn: {{Code: "V4", Name: "Fourth leaf", Offset: 21}},
		}),
	})
	require.NoError(t, err)

	a := &api{t: t, r: r}
	token := a.login("admin@test.local", "secret123")
	w := a.do(http.MethodGet, "/api/phenology/schedule?culture=milho&planting_date=2025-01-10", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	entries := decode[[]dto.ScheduleEntry](t, w)
	require.Len(t, entries, 1)
	assert.Equal(t, "2025-01-31", entries[0].SuggestedDate)
}
