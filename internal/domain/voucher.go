package domain

import "time"

// Voucher status values. A voucher is "consistent" only when its local
// status and the device-side disabled flag agree; the reconciliation
// service is the sole authority for detecting and repairing divergence.
const (
	VoucherStatusActive      = "active"
	VoucherStatusUsed        = "used"
	VoucherStatusExpired     = "expired"
	VoucherStatusDisabled    = "disabled"
	VoucherStatusTransferred = "transferred"
	VoucherStatusRefunded    = "refunded"
)

// HotspotVoucher purchasable hotspot access credential, provisioned both
// locally and as a hotspot user on its assigned device.
type HotspotVoucher struct {
	ID            int64     `json:"id,string" gorm:"primaryKey"`   // Primary key ID
	DeviceID      int64     `json:"device_id,string" gorm:"index"` // Assigned device ID
	Code          string    `json:"code" gorm:"uniqueIndex"`       // Human-readable voucher code, also the remote username
	Password      string    `json:"password"`                      // Hotspot login password
	PackageTier   string    `json:"package_tier" gorm:"index"`     // Requested package tier key
	Profile       string    `json:"profile"`                       // RouterOS hotspot user profile
	ValidityHours int       `json:"validity_hours"`                // Validity window in hours
	DataLimitMB   int64     `json:"data_limit_mb"`                 // Data cap in MB, 0 = uncapped
	Phone         string    `json:"phone"`                         // Buyer phone for SMS delivery
	Status        string    `json:"status" gorm:"index"`           // active/used/expired/disabled/transferred/refunded
	RemoteID      string    `json:"remote_id"`                     // Hotspot user .id on the device
	Delivered     bool      `json:"delivered"`                     // SMS delivery succeeded
	ExpireAt      time.Time `json:"expire_at"`                     // End of validity window
	CreatedAt     time.Time `json:"created_at" gorm:"index"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName specifies the table name
func (HotspotVoucher) TableName() string {
	return "hotspot_voucher"
}

// HotspotVoucherLog Audit trail for provisioning and reconciliation actions
type HotspotVoucherLog struct {
	ID         int64     `json:"id,string" gorm:"primaryKey"`
	VoucherID  int64     `json:"voucher_id,string" gorm:"index"`
	DeviceID   int64     `json:"device_id,string"`
	Code       string    `json:"code" gorm:"index"`
	Action     string    `json:"action"`                   // "provisioned", "created", "synced", "disabled", "status_mismatch", "orphan_risk", "delivery_failed"
	Status     string    `json:"status"`                   // "success", "failure"
	ErrorMsg   string    `json:"error_msg"`                // Error message if action failed
	Payload    string    `json:"payload" gorm:"type:text"` // JSON detail payload
	ExecutedAt time.Time `json:"executed_at"`
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
}

// TableName specifies the table name
func (HotspotVoucherLog) TableName() string {
	return "hotspot_voucher_log"
}
