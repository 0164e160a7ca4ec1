package cnst

type NotificationType string

const (
	NotificationSensor   NotificationType = "sensor"
	NotificationRequest  NotificationType = "request"
	NotificationNewUser  NotificationType = "new_user"
	NotificationSchedule NotificationType = "schedule"
)

type NotificationStatus string

const (
	StatusPending  NotificationStatus = "pending"
	StatusApproved NotificationStatus = "approved"
	StatusActive   NotificationStatus = "active"
	StatusResolved NotificationStatus = "resolved"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// SessionType is the kind of entry written to the session history
type SessionType string

const (
	SessionLogin  SessionType = "login"
	SessionLogout SessionType = "logout"
)

// EventIDPrefix marks feed entries derived from scheduled events
const EventIDPrefix = "event-"
