package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BusinessScope returns a GORM scope that filters by business.
// A nil business id matches nothing.
func BusinessScope(businessID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if businessID == uuid.Nil {
			return db.Where("1 = 0")
		}
		return db.Where("business_id = ?", businessID)
	}
}

// ForUpdate locks the selected rows until the transaction ends
func ForUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
