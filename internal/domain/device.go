package domain

import "time"

// Device status values maintained by the monitoring job.
const (
	DeviceStatusOnline  = "online"
	DeviceStatusOffline = "offline"
	DeviceStatusError   = "error"
)

// HotspotDevice RouterOS device data model, the gateway units that host
// hotspot portal users. Never deleted while vouchers reference it.
type HotspotDevice struct {
	ID          int64     `json:"id,string" form:"id"`              // Primary key ID
	Name        string    `json:"name" form:"name"`                 // Device name
	Ipaddr      string    `json:"ipaddr" form:"ipaddr"`             // Device IP
	ApiPort     int       `json:"api_port" form:"api_port"`         // RouterOS API port
	Username    string    `json:"username" form:"username"`         // API login username
	Password    string    `json:"password" form:"password"`         // API login password
	VendorCode  string    `json:"vendor_code" form:"vendor_code"`   // Vendor code (14988=Mikrotik)
	Status      string    `json:"status" form:"status"`             // online / offline / error
	Identity    string    `json:"identity" form:"identity"`         // Last probed system identity
	Uptime      string    `json:"uptime" form:"uptime"`             // Last probed uptime
	Latency     int       `json:"latency" form:"latency"`           // ICMP latency in milliseconds
	LastSeen    time.Time `json:"last_seen"`                        // Last successful probe time
	LastMessage string    `json:"last_message" form:"last_message"` // Last probe message or error
	Tags        string    `json:"tags" form:"tags"`
	Remark      string    `json:"remark" form:"remark"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName Specify table name
func (HotspotDevice) TableName() string {
	return "hotspot_device"
}

// NetScheduler scheduler task data model for managing scheduled jobs
type NetScheduler struct {
	ID          int64     `json:"id,string" form:"id"`              // Primary key ID
	Name        string    `json:"name" form:"name"`                 // Scheduler name
	TaskType    string    `json:"task_type" form:"task_type"`       // Task type (device_status, voucher_reconcile)
	Interval    int       `json:"interval" form:"interval"`         // Interval in seconds
	Status      string    `json:"status" form:"status"`             // Status (enabled/disabled)
	LastRunAt   time.Time `json:"last_run_at"`                      // Last execution time
	NextRunAt   time.Time `json:"next_run_at"`                      // Next scheduled execution time
	LastResult  string    `json:"last_result" form:"last_result"`   // Last execution result (success/failed)
	LastMessage string    `json:"last_message" form:"last_message"` // Last execution message or error
	Remark      string    `json:"remark" form:"remark"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName Specify table name
func (NetScheduler) TableName() string {
	return "net_scheduler"
}
