package repository

import (
	"github.com/Fi44er/roi_ledger/utils"
	"gorm.io/gorm"
)

type Repository struct {
	db     *gorm.DB
	logger *utils.Logger
}

func NewRepository(db *gorm.DB, logger *utils.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// conn picks the open transaction when there is one.
func (r *Repository) conn(tx *gorm.DB) *gorm.DB {
	if tx == nil {
		return r.db
	}
	return tx
}
