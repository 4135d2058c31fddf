package constants

// Context keys
const (
	ContextKeyUser  = "user"
	ContextKeyToken = "token"
)

// HTTP headers
const (
	HeaderAuthorization = "Authorization"
	HeaderDeviceToken   = "X-Device-Token"
)

// Response envelope keys
const (
	ResponseError = "error"
	FieldMessage  = "message"
)

// Scheduler tuning
const (
	// PMCheckIntervalSeconds is how often the PM scheduler scans for due schedules
	PMCheckIntervalSeconds = 60

	// SystemSchedulerUserID owns work orders generated by PM schedules
	SystemSchedulerUserID = "00000000-0000-0000-0000-000000000000"
)
