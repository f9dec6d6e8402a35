package domain

import "time"

// Config snapshot change types.
const (
	ConfigChangeCreate  = "create"
	ConfigChangeUpdate  = "update"
	ConfigChangeRestore = "restore"
)

// ConfigSnapshot immutable versioned copy of a device configuration blob.
// Rows are append-only: a snapshot is superseded by a newer version, never
// mutated in place. Restores replay through the normal record path so they
// produce their own history entry.
type ConfigSnapshot struct {
	ID         int64     `json:"id,string" gorm:"primaryKey"`
	DeviceID   int64     `json:"device_id,string" gorm:"index"`
	Version    int       `json:"version" gorm:"index"`     // Monotonic per device
	ChangeType string    `json:"change_type"`              // create / update / restore
	Actor      string    `json:"actor"`                    // Authoring operator or "system"
	Content    string    `json:"content" gorm:"type:text"` // Full configuration blob
	Current    bool      `json:"current" gorm:"index"`     // True only for the latest version
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
}

// TableName specifies the table name
func (ConfigSnapshot) TableName() string {
	return "config_snapshot"
}
