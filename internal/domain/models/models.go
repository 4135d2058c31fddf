package models

import "time"

// Organization scopes every entity; no cross-organization references are
// permitted by the access layer.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// User is an authenticated account within one organization
type User struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	OrganizationID string     `json:"organization_id"`
	IsActive       bool       `json:"is_active"`
	IsAdmin        bool       `json:"is_admin"`
	RoleIDs        []string   `json:"role_ids,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
}

// Role is a named permission grouping referenced by workflow step assignments
type Role struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	OrganizationID string `json:"organization_id"`
}

// Session is one issued JWT, identified by its jti for revocation
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Token        string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	IPAddress    string    `json:"ip_address,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	IsRevoked    bool      `json:"is_revoked"`
	LastActivity time.Time `json:"last_activity"`
}

// Asset is one maintainable item in the registry. ParentAssetID forms the
// asset hierarchy tree.
type Asset struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Tag            string    `json:"tag,omitempty"`
	Description    string    `json:"description,omitempty"`
	Location       string    `json:"location,omitempty"`
	Status         string    `json:"status"`
	Criticality    string    `json:"criticality,omitempty"`
	ParentAssetID  *string   `json:"parent_asset_id,omitempty"`
	OrganizationID string    `json:"organization_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Children is populated only by the hierarchy tree endpoint
	Children []*Asset `json:"children,omitempty"`
}

// Part is a stocked spare referenced by bills of materials
type Part struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	PartNumber     string    `json:"part_number,omitempty"`
	UnitCost       float64   `json:"unit_cost"`
	StockQuantity  float64   `json:"stock_quantity"`
	OrganizationID string    `json:"organization_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// BOMLine links a part to an asset's bill of materials
type BOMLine struct {
	ID             string  `json:"id"`
	AssetID        string  `json:"asset_id"`
	PartID         string  `json:"part_id"`
	PartName       string  `json:"part_name,omitempty"`
	Quantity       float64 `json:"quantity"`
	UnitCost       float64 `json:"unit_cost"`
	OrganizationID string  `json:"organization_id"`
}

// WorkOrder is the central maintenance record driven through the workflow
type WorkOrder struct {
	ID                  string     `json:"id"`
	Title               string     `json:"title"`
	Description         string     `json:"description,omitempty"`
	Status              string     `json:"status"`
	Priority            string     `json:"priority,omitempty"`
	AssetID             *string    `json:"asset_id,omitempty"`
	IncidentID          *string    `json:"incident_id,omitempty"`
	AssignedToUserID    *string    `json:"assigned_to_user_id,omitempty"`
	CreatedByUserID     string     `json:"created_by_user_id"`
	ScheduledStartDate  *time.Time `json:"scheduled_start_date,omitempty"`
	ScheduledFinishDate *time.Time `json:"scheduled_finish_date,omitempty"`
	ActualFinishDate    *time.Time `json:"actual_finish_date,omitempty"`
	OrganizationID      string     `json:"organization_id"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Incident is a reported fault; an active workflow step may permit spawning
// a work order from it
type Incident struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	Severity         string    `json:"severity"`
	Status           string    `json:"status"`
	AssetID          *string   `json:"asset_id,omitempty"`
	ReportedByUserID string    `json:"reported_by_user_id"`
	WorkOrderID      *string   `json:"work_order_id,omitempty"`
	OrganizationID   string    `json:"organization_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// PMSchedule is a preventive maintenance rule that generates work orders.
// Time rules carry a cron expression; meter rules carry a boolean expression
// over the asset's latest meter readings.
type PMSchedule struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	AssetID         string     `json:"asset_id"`
	TriggerKind     string     `json:"trigger_kind"`
	CronExpression  string     `json:"cron_expression,omitempty"`
	MeterCondition  string     `json:"meter_condition,omitempty"`
	WorkOrderTitle  string     `json:"work_order_title"`
	Priority        string     `json:"priority,omitempty"`
	IsActive        bool       `json:"is_active"`
	LastGeneratedAt *time.Time `json:"last_generated_at,omitempty"`
	NextDueAt       *time.Time `json:"next_due_at,omitempty"`
	OrganizationID  string     `json:"organization_id"`
	CreatedAt       time.Time  `json:"created_at"`
}

// IoTDevice is a registered sensor bound to an asset. Its token authorises
// meter-reading ingest.
type IoTDevice struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	SerialNumber   string     `json:"serial_number"`
	AssetID        string     `json:"asset_id"`
	Token          string     `json:"token,omitempty"`
	IsActive       bool       `json:"is_active"`
	LastSeenAt     *time.Time `json:"last_seen_at,omitempty"`
	OrganizationID string     `json:"organization_id"`
	CreatedAt      time.Time  `json:"created_at"`
}

// MeterReading is one ingested measurement feeding meter-based PM rules
type MeterReading struct {
	ID             string    `json:"id"`
	AssetID        string    `json:"asset_id"`
	DeviceID       *string   `json:"device_id,omitempty"`
	MeterName      string    `json:"meter_name"`
	Value          float64   `json:"value"`
	RecordedAt     time.Time `json:"recorded_at"`
	OrganizationID string    `json:"organization_id"`
}

// WorkflowTemplate is a reusable ordered step definition
type WorkflowTemplate struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	EntityKind     string    `json:"entity_kind"`
	IsActive       bool      `json:"is_active"`
	OrganizationID string    `json:"organization_id"`
	CreatedAt      time.Time `json:"created_at"`
}
