package database_test

import (
	"context"
	"testing"

	"agro-crm/internal/config"
	"agro-crm/internal/database"
	"agro-crm/internal/models"
	"agro-crm/internal/phenology"
	"agro-crm/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func seedConfig() *config.Config {
	return &config.Config{AdminEmail: "admin@test.local", AdminPassword: "secret123"}
}

func TestSeedIsIdempotent(t *testing.T) {
	db := testutil.OpenDB(t)
	catalog, err := phenology.DefaultCatalog()
	require.NoError(t, err)

	require.NoError(t, database.Seed(db, seedConfig(), catalog))
	require.NoError(t, database.Seed(db, seedConfig(), catalog))

	var admins []models.User
	require.NoError(t, db.Where("role = ?", models.RoleAdmin).Find(&admins).Error)
	require.Len(t, admins, 1)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admins[0].PasswordHash), []byte("secret123")))

	var stages int64
	require.NoError(t, db.Model(&models.PhenologyStage{}).Count(&stages).Error)
	assert.EqualValues(t, len(catalog.Rows()), stages)

	var varieties int64
	require.NoError(t, db.Model(&models.Variety{}).Count(&varieties).Error)
	assert.NotZero(t, varieties)
}

func TestDBCatalogMatchesSeed(t *testing.T) {
	db := testutil.OpenDB(t)
	static, err := phenology.DefaultCatalog()
	require.NoError(t, err)
	require.NoError(t, database.Seed(db, seedConfig(), static))

	ctx := context.Background()
	fromDB, err := phenology.NewDBCatalog(db).StagesFor(ctx, phenology.Soy)
	require.NoError(t, err)
	want, _ := static.StagesFor(ctx, phenology.Soy)
	assert.Equal(t, want, fromDB)

	none, err := phenology.NewDBCatalog(db).StagesFor(ctx, phenology.CropUnknown)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAuditLog(t *testing.T) {
	db := testutil.OpenDB(t)
	ctx := context.Background()

	user := models.User{Email: "a@b.c", PasswordHash: "x", Role: models.RoleConsultant}
	require.NoError(t, db.Create(&user).Error)

	database.CreateAuditLog(ctx, db, &user.ID, "client", 7, "create", "name=Acme")
	database.CreateAuditLog(ctx, db, nil, "visit", 9, "cascade_delete", "")

	logs, err := database.ListAuditLogs(ctx, db, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "visit", logs[0].Entity)
	assert.Nil(t, logs[0].User)
	require.NotNil(t, logs[1].User)
	assert.Equal(t, "a@b.c", logs[1].User.Email)
}
