package constants

// Session / context keys
const (
	SessionCookieName = "tracker_session"
	ContextKeyUserID  = "user_id"
	ContextKeyProject = "project"
	ContextKeyMember  = "project_member"
	ContextKeyTicket  = "ticket"
)

// Authentication
const (
	MinPasswordLength = 8
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Ticket defaults
const (
	DefaultStatusID   = 1
	DefaultPriorityID = 3
)

// Uploads
const (
	DefaultMaxUploadBytes = 10 << 20 // 10MB
)

// Attachment owner entity types
const (
	OwnerTypeTicket  = "ticket"
	OwnerTypeComment = "comment"
)
