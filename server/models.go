// Copyright 2025 The Go FormFlow Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// FieldRecordsJSON provides JSON serialization for []FieldRecord in
// database columns.
type FieldRecordsJSON struct {
	Fields []FieldRecord
}

// Value implements the driver.Valuer interface for database storage.
func (fr FieldRecordsJSON) Value() (driver.Value, error) {
	if fr.Fields == nil {
		return nil, nil
	}
	return json.Marshal(fr.Fields)
}

// Scan implements the sql.Scanner interface for database retrieval.
func (fr *FieldRecordsJSON) Scan(value any) error {
	if value == nil {
		*fr = FieldRecordsJSON{}
		return nil
	}

	bytes, err := scanBytes(value)
	if err != nil {
		return fmt.Errorf("cannot scan FieldRecordsJSON: %w", err)
	}

	var fields []FieldRecord
	if err := json.Unmarshal(bytes, &fields); err != nil {
		return fmt.Errorf("cannot unmarshal FieldRecordsJSON: %w", err)
	}
	fr.Fields = fields
	return nil
}

// FileRecordsJSON provides JSON serialization for []FileRecord in
// database columns.
type FileRecordsJSON struct {
	Files []FileRecord
}

// Value implements the driver.Valuer interface for database storage.
func (fr FileRecordsJSON) Value() (driver.Value, error) {
	if fr.Files == nil {
		return nil, nil
	}
	return json.Marshal(fr.Files)
}

// Scan implements the sql.Scanner interface for database retrieval.
func (fr *FileRecordsJSON) Scan(value any) error {
	if value == nil {
		*fr = FileRecordsJSON{}
		return nil
	}

	bytes, err := scanBytes(value)
	if err != nil {
		return fmt.Errorf("cannot scan FileRecordsJSON: %w", err)
	}

	var files []FileRecord
	if err := json.Unmarshal(bytes, &files); err != nil {
		return fmt.Errorf("cannot unmarshal FileRecordsJSON: %w", err)
	}
	fr.Files = files
	return nil
}

// StringSliceJSON provides JSON serialization for []string in database
// columns.
type StringSliceJSON struct {
	Values []string
}

// Value implements the driver.Valuer interface for database storage.
func (ss StringSliceJSON) Value() (driver.Value, error) {
	if ss.Values == nil {
		return nil, nil
	}
	return json.Marshal(ss.Values)
}

// Scan implements the sql.Scanner interface for database retrieval.
func (ss *StringSliceJSON) Scan(value any) error {
	if value == nil {
		*ss = StringSliceJSON{}
		return nil
	}

	bytes, err := scanBytes(value)
	if err != nil {
		return fmt.Errorf("cannot scan StringSliceJSON: %w", err)
	}

	var values []string
	if err := json.Unmarshal(bytes, &values); err != nil {
		return fmt.Errorf("cannot unmarshal StringSliceJSON: %w", err)
	}
	ss.Values = values
	return nil
}

func scanBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported column type %T", value)
	}
}

// UploadModel is the GORM database model for upload records.
type UploadModel struct {
	ID        string           `gorm:"column:id;primaryKey"`
	CreatedAt time.Time        `gorm:"column:created_at"`
	UpdatedAt time.Time        `gorm:"column:updated_at"`
	Fields    FieldRecordsJSON `gorm:"column:fields;type:json"`
	Files     FileRecordsJSON  `gorm:"column:files;type:json"`
	LimitsHit StringSliceJSON  `gorm:"column:limits_hit;type:json"`
}

// TableName returns the database table name for GORM.
func (UploadModel) TableName() string {
	return "uploads"
}

// NewUploadModelFromUpload converts an Upload to its database model.
func NewUploadModelFromUpload(upload *Upload) (*UploadModel, error) {
	if upload == nil {
		return nil, fmt.Errorf("upload cannot be nil")
	}

	return &UploadModel{
		ID:        upload.ID,
		CreatedAt: upload.CreatedAt,
		Fields:    FieldRecordsJSON{Fields: upload.Fields},
		Files:     FileRecordsJSON{Files: upload.Files},
		LimitsHit: StringSliceJSON{Values: upload.LimitsHit},
	}, nil
}

// ToUpload converts the database model back to an Upload.
func (m *UploadModel) ToUpload() (*Upload, error) {
	if m == nil {
		return nil, fmt.Errorf("upload model cannot be nil")
	}

	return &Upload{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		Fields:    m.Fields.Fields,
		Files:     m.Files.Files,
		LimitsHit: m.LimitsHit.Values,
	}, nil
}
