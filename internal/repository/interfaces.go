package repository

import (
	"freshscan/internal/model"
)

// PassRepository defines the interface for detection pass history.
type PassRepository interface {
	// Create operations
	Insert(pass *model.PassRecord, predictions []model.PredictionRecord) (int64, error)

	// Read operations
	GetByID(id int64) (*model.PassRecord, error)
	GetByPassID(passID string) (*model.PassRecord, error)
	GetAll(filter *model.PassFilter) ([]model.PassRecord, error)
	GetTotalCount(filter *model.PassFilter) (int, error)
	GetStats() (*model.PassStats, error)

	// Delete operations
	Delete(id int64) error
	DeleteAll() error
}

// PredictionRepository defines the interface for stored predictions.
type PredictionRepository interface {
	// Read operations
	GetByPassRowID(passRowID int64) ([]model.PredictionRecord, error)
	GetLabelsByPassRowID(passRowID int64) ([]string, error)
	GetAllLabels() ([]string, error)
}
