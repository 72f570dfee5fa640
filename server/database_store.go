// Copyright 2025 The Go FormFlow Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// DatabaseUploadStore is a database implementation of UploadStore using
// GORM. It persists [UploadModel] rows.
type DatabaseUploadStore struct {
	db *gorm.DB
}

var _ UploadStore = (*DatabaseUploadStore)(nil)

// DatabaseUploadStoreConfig holds configuration for DatabaseUploadStore.
type DatabaseUploadStoreConfig struct {
	DB *gorm.DB

	// Migrate controls whether the uploads table is created or updated
	// on construction.
	Migrate bool
}

// NewDatabaseUploadStore creates a new DatabaseUploadStore.
func NewDatabaseUploadStore(config DatabaseUploadStoreConfig) (*DatabaseUploadStore, error) {
	if config.DB == nil {
		return nil, fmt.Errorf("database connection cannot be nil")
	}

	if config.Migrate {
		if err := config.DB.AutoMigrate(&UploadModel{}); err != nil {
			return nil, fmt.Errorf("migrate uploads table: %w", err)
		}
	}

	return &DatabaseUploadStore{db: config.DB}, nil
}

// Save persists an upload record to the database.
func (s *DatabaseUploadStore) Save(ctx context.Context, upload *Upload) error {
	if upload == nil {
		return fmt.Errorf("upload cannot be nil")
	}
	if err := upload.Validate(); err != nil {
		return NewUploadValidationError(upload.ID, err)
	}

	model, err := NewUploadModelFromUpload(upload)
	if err != nil {
		return NewUploadStoreError("save", upload.ID, err)
	}

	if err := s.db.WithContext(ctx).Save(model).Error; err != nil {
		return NewUploadStoreError("save", upload.ID, err)
	}
	return nil
}

// Get retrieves an upload by its ID from the database.
func (s *DatabaseUploadStore) Get(ctx context.Context, uploadID string) (*Upload, error) {
	if uploadID == "" {
		return nil, fmt.Errorf("upload ID cannot be empty")
	}

	var model UploadModel
	if err := s.db.WithContext(ctx).Where("id = ?", uploadID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, UploadNotFoundError{UploadID: uploadID}
		}
		return nil, NewUploadStoreError("get", uploadID, err)
	}

	upload, err := model.ToUpload()
	if err != nil {
		return nil, NewUploadStoreError("get", uploadID, err)
	}
	return upload, nil
}

// List returns all stored uploads, newest first.
func (s *DatabaseUploadStore) List(ctx context.Context) ([]*Upload, error) {
	var models []UploadModel
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, NewUploadStoreError("list", "", err)
	}

	uploads := make([]*Upload, 0, len(models))
	for i := range models {
		upload, err := models[i].ToUpload()
		if err != nil {
			return nil, NewUploadStoreError("list", models[i].ID, err)
		}
		uploads = append(uploads, upload)
	}
	return uploads, nil
}

// Delete removes an upload record from the database.
func (s *DatabaseUploadStore) Delete(ctx context.Context, uploadID string) error {
	if uploadID == "" {
		return fmt.Errorf("upload ID cannot be empty")
	}

	result := s.db.WithContext(ctx).Where("id = ?", uploadID).Delete(&UploadModel{})
	if result.Error != nil {
		return NewUploadStoreError("delete", uploadID, result.Error)
	}
	if result.RowsAffected == 0 {
		return UploadNotFoundError{UploadID: uploadID}
	}
	return nil
}
