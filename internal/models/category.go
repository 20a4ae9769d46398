package models

import (
	"time"

	"github.com/uptrace/bun"
)

// SupportCategory is a bookable support area (e.g. "Debugging", "Cloud
// Migration"). Read-mostly catalog data.
type SupportCategory struct {
	bun.BaseModel `bun:"table:support_categories"`

	CategoryID  string    `bun:"category_id,pk" json:"category_id"`
	Name        string    `bun:"name,notnull" json:"name"`
	Description string    `bun:"description,nullzero" json:"description,omitempty"`
	Icon        string    `bun:"icon,nullzero" json:"icon,omitempty"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"created_at"`
}
