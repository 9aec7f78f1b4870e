package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Platform is a sales channel the back office is connected to.
type Platform struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name         string    `gorm:"uniqueIndex;not null"`
	PlatformType string    `gorm:"column:platform_type;not null"`
}

func (p *Platform) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
