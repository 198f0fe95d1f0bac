package database

import (
	"errors"
	"fmt"
	"time"

	"agro-crm/internal/config"
	"agro-crm/internal/models"
	"agro-crm/internal/phenology"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const (
	maxAttempts  = 10
	retryBackoff = 2 * time.Second
)

// Models is the AutoMigrate list, shared with the test database.
func Models() []any {
	return []any{
		&models.User{},
		&models.Client{},
		&models.Property{},
		&models.Plot{},
		&models.Planting{},
		&models.Visit{},
		&models.VisitProduct{},
		&models.Photo{},
		&models.Opportunity{},
		&models.PhenologyStage{},
		&models.Variety{},
		&models.AuditLog{},
	}
}

func dialector(cfg *config.Config) gorm.Dialector {
	if cfg.DBDriver == "sqlite" {
		return sqlite.Open(cfg.DBDSN)
	}
	return postgres.Open(cfg.DBDSN)
}

// Connect opens the configured database, retrying while it comes up, and migrates the schema.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if !cfg.IsProduction() {
		gcfg.Logger = logger.Default.LogMode(logger.Warn)
	}

	var (
		db  *gorm.DB
		err error
	)
	for i := 1; i <= maxAttempts; i++ {
		log.Info().Str("driver", cfg.DBDriver).Msgf("connecting to database (attempt %d/%d)", i, maxAttempts)

		db, err = gorm.Open(dialector(cfg), gcfg)
		if err == nil {
			break
		}
		log.Warn().Err(err).Msg("database connection failed")
		time.Sleep(retryBackoff)
	}
	if err != nil {
		return nil, fmt.Errorf("connect after %d attempts: %w", maxAttempts, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.DBDriver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
	}

	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

var defaultVarieties = map[phenology.Crop][]string{
	phenology.Corn:   {"AG 8480", "DKB 290", "P3707", "Feroz"},
	phenology.Soy:    {"Olimpo", "Monsoy 8606", "Brasmax Desafio", "TMG 7063"},
	phenology.Cotton: {"FM 985", "TMG 44", "DP 1536"},
}

// Seed creates the default admin and loads reference data. It is idempotent.
func Seed(db *gorm.DB, cfg *config.Config, catalog *phenology.StaticCatalog) error {
	if err := createDefaultAdmin(db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return err
	}

	stages := catalog.Rows()
	if len(stages) > 0 {
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "culture"}, {Name: "code"}},
			DoNothing: true,
		}).Create(&stages).Error
		if err != nil {
			return fmt.Errorf("seed phenology stages: %w", err)
		}
	}

	var varieties []models.Variety
	for _, crop := range phenology.Crops() {
		for _, name := range defaultVarieties[crop] {
			varieties = append(varieties, models.Variety{Culture: crop.String(), Name: name})
		}
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "culture"}, {Name: "name"}},
		DoNothing: true,
	}).Create(&varieties).Error
	if err != nil {
		return fmt.Errorf("seed varieties: %w", err)
	}
	return nil
}

func createDefaultAdmin(db *gorm.DB, email, password string) error {
	var count int64
	if err := db.Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).
		Count(&count).Error; err != nil {
		return fmt.Errorf("check admin user: %w", err)
	}
	if count > 0 {
		return nil
	}
	if email == "" || password == "" {
		return errors.New("no admin user and ADMIN_EMAIL/ADMIN_PASSWORD not set")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := models.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("create default admin: %w", err)
	}

	log.Info().Str("email", email).Msg("created default admin user")
	return nil
}
