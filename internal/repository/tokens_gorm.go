package repository

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/dexgate/dexgate/internal/config"
	"github.com/dexgate/dexgate/internal/model"
)

// GormTokenRepo persists the token registry.
type GormTokenRepo struct {
	db *gorm.DB
}

func NewGormTokenRepo(cfg *config.Config) (*GormTokenRepo, error) {
	if cfg == nil || cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database dsn is empty")
	}
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open token db: %w", err)
	}
	if err := db.AutoMigrate(&model.Token{}); err != nil {
		return nil, fmt.Errorf("failed to migrate token schema: %w", err)
	}
	return &GormTokenRepo{db: db}, nil
}

func (r *GormTokenRepo) List(ctx context.Context) ([]model.Token, error) {
	var tokens []model.Token
	if err := r.db.WithContext(ctx).Find(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *GormTokenRepo) Upsert(ctx context.Context, token model.Token) error {
	var existing model.Token
	err := r.db.WithContext(ctx).
		Where("chain_id = ? AND address = ?", token.ChainID, token.Address).
		First(&existing).Error
	if err == nil {
		token.ID = existing.ID
		return r.db.WithContext(ctx).Save(&token).Error
	}
	if err == gorm.ErrRecordNotFound {
		return r.db.WithContext(ctx).Create(&token).Error
	}
	return err
}
