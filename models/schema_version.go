package models

// SchemaVersion is the single-row table tracking the monotonic schema
// version. ID is always 1.
type SchemaVersion struct {
	ID      int `gorm:"primaryKey" json:"id"`
	Version int `gorm:"not null" json:"version"`
}
