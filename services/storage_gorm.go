package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StoredResource is one durable resource row (a tenant snapshot or counter map)
type StoredResource struct {
	ResourceKey string    `gorm:"primarykey;size:255" json:"resource_key"`
	Payload     []byte    `gorm:"not null" json:"payload"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName overrides the default table name
func (StoredResource) TableName() string {
	return "legal_resources"
}

// GormStorage implements ResourceStorage on any gorm dialect (sqlite, libsql, postgres)
type GormStorage struct {
	db *gorm.DB
}

// NewGormStorage migrates the resource table and returns the storage
func NewGormStorage(db *gorm.DB) (*GormStorage, error) {
	if db == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if err := db.AutoMigrate(&StoredResource{}); err != nil {
		return nil, fmt.Errorf("failed to migrate resource table: %w", err)
	}
	return &GormStorage{db: db}, nil
}

// Name identifies the backend in logs
func (g *GormStorage) Name() string {
	return "sql:" + g.db.Dialector.Name()
}

// Read loads the payload stored under key
func (g *GormStorage) Read(ctx context.Context, key string) ([]byte, error) {
	var row StoredResource
	err := g.db.WithContext(ctx).First(&row, "resource_key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, fmt.Errorf("failed to read resource %s: %w", key, err)
	}
	return row.Payload, nil
}

// Write upserts the payload under key in a single statement
func (g *GormStorage) Write(ctx context.Context, key string, data []byte) error {
	row := StoredResource{
		ResourceKey: key,
		Payload:     data,
		UpdatedAt:   time.Now().UTC(),
	}
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "resource_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to write resource %s: %w", key, err)
	}
	return nil
}

// Delete removes the row stored under key
func (g *GormStorage) Delete(ctx context.Context, key string) error {
	err := g.db.WithContext(ctx).Delete(&StoredResource{}, "resource_key = ?", key).Error
	if err != nil {
		return fmt.Errorf("failed to delete resource %s: %w", key, err)
	}
	return nil
}
