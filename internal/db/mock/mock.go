package mock

import (
	"context"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hopper/internal/db"
	applog "hopper/internal/log"
	"hopper/models"
)

// Demo credentials seeded into the mock database.
const (
	DemoUsername = "admin"
	DemoEmail    = "admin@hopper.app"
	DemoPassword = "hopper-admin"
)

// New returns an in-memory sqlite database seeded with a demo account and sales platforms.
func New(ctx context.Context) (*gorm.DB, error) {
	applog.Debug(ctx, "initialising mock database")

	database, err := gorm.Open(sqlite.Open("file:hopper-mock?mode=memory&cache=shared"), db.GormConfig(logger.Silent))
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(database); err != nil {
		return nil, err
	}

	if err := seed(ctx, database); err != nil {
		return nil, err
	}

	applog.Debug(ctx, "mock database ready")
	return database, nil
}

func seed(ctx context.Context, database *gorm.DB) error {
	var count int64
	if err := database.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		applog.Debug(ctx, "mock database already seeded")
		return nil
	}

	applog.Debug(ctx, "seeding mock database")

	password, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := &models.User{
		Username:     DemoUsername,
		Email:        DemoEmail,
		PasswordHash: string(password),
		Enabled:      true,
		Roles:        models.RoleList{models.RoleAdmin, models.RoleUser},
	}
	if err := database.WithContext(ctx).Create(user).Error; err != nil {
		return err
	}

	platforms := []models.Platform{
		{Name: "Shopify", PlatformType: "ECOMMERCE"},
		{Name: "Amazon", PlatformType: "MARKETPLACE"},
		{Name: "eBay", PlatformType: "MARKETPLACE"},
		{Name: "Etsy", PlatformType: "MARKETPLACE"},
	}
	for _, platform := range platforms {
		platformCopy := platform
		if err := database.WithContext(ctx).Create(&platformCopy).Error; err != nil {
			return err
		}
	}

	applog.Debug(ctx, "mock database seeded")
	return nil
}
