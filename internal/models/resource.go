package models

import "time"

// MaintenanceResource is a catalog entry for a part, consumable, or crew
// role. Read-only reference data; actions name resources by free text, so
// there is no foreign key back to this table.
type MaintenanceResource struct {
	ID        string `gorm:"primaryKey;size:32"`
	Name      string `gorm:"not null;uniqueIndex"`
	Type      string `gorm:"size:16;index"` // part, consumable, human
	Quantity  int
	Unit      string `gorm:"size:16"`
	UnitCost  float64
	Supplier  string `gorm:"size:128"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
