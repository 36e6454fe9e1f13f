package models

// Category represents a transaction category. Seeded defaults have IsCustom=false.
type Category struct {
	Base
	SyncMeta
	Name     string `gorm:"not null" json:"name"`
	Icon     string `json:"icon"`
	Color    string `json:"color"`
	IsCustom bool   `gorm:"not null" json:"is_custom"`
}
