package models

import "gorm.io/datatypes"

// Task is a to-do item owned by a single user.
type Task struct {
	BaseModel

	UserID      string `gorm:"type:uuid;not null;index" json:"user_id"`
	Heading     string `gorm:"not null" json:"heading"`
	Description string `gorm:"not null" json:"description"`
	Done        bool   `gorm:"default:false" json:"done"`

	// Labels holds free-form client-side tags as a JSON array.
	Labels datatypes.JSON `json:"labels,omitempty"`
}
