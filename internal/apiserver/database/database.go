package database

import (
	"context"
	"time"

	"github.com/amoylab/hydrowatch/internal/common/cnst"
)

// NotificationFilter narrows ListNotifications. A nil UserID means all users.
type NotificationFilter struct {
	UserID *uint
	Type   cnst.NotificationType
	Status cnst.NotificationStatus
}

// Database defines the methods for database operations. Lookups that find
// nothing return cnst.ErrNotFound; unique violations return cnst.ErrDuplicate.
type Database interface {
	// Close closes the database connection.
	Close() error
	// Ping checks the connection.
	Ping(ctx context.Context) error
	// Transaction runs fn in a transaction carried by the context passed to it.
	// It commits when fn returns nil and rolls back otherwise.
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error

	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id uint) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	// GetUserByLogin finds a user by email or username.
	GetUserByLogin(ctx context.Context, identifier string) (*User, error)
	// UserExists reports whether the email or the username is taken.
	UserExists(ctx context.Context, email, username string) (bool, error)
	UpdateUser(ctx context.Context, user *User) error
	// SetUserDeviceID binds the user to deviceID, clearing is_verified when
	// the device changes. It returns the number of rows updated.
	SetUserDeviceID(ctx context.Context, userID uint, deviceID string) (int64, error)
	// SetUserVerified marks the user verified for deviceID. It returns the
	// number of rows updated.
	SetUserVerified(ctx context.Context, userID uint, deviceID string) (int64, error)
	ListUsers(ctx context.Context, roles ...cnst.Role) ([]*User, error)
	CountUsersByRole(ctx context.Context, role cnst.Role) (int64, error)
	// DeleteUser removes the user and their establishment assignments.
	DeleteUser(ctx context.Context, id uint) error
	// ClearExpiredOTPs blanks codes whose expiry is before now.
	ClearExpiredOTPs(ctx context.Context, now time.Time) (int64, error)

	CreateEstablishment(ctx context.Context, est *Establishment) error
	GetEstablishment(ctx context.Context, id uint) (*Establishment, error)
	GetEstablishmentByDeviceID(ctx context.Context, deviceID string) (*Establishment, error)
	ListEstablishments(ctx context.Context) ([]*Establishment, error)
	ListEstablishmentsByIDs(ctx context.Context, ids []uint) ([]*Establishment, error)
	// EstablishmentConflict reports whether another establishment uses name or deviceID.
	EstablishmentConflict(ctx context.Context, name, deviceID string, excludeID uint) (bool, error)
	UpdateEstablishment(ctx context.Context, est *Establishment) error
	// DeleteEstablishment removes the establishment and all its join rows.
	DeleteEstablishment(ctx context.Context, id uint) error
	// ExistingEstablishmentIDs returns the subset of ids that exist, in input order.
	ExistingEstablishmentIDs(ctx context.Context, ids []uint) ([]uint, error)
	// SetEstablishmentSensors replaces the sensor links with one batched insert.
	SetEstablishmentSensors(ctx context.Context, establishmentID uint, sensorIDs []uint) error

	AssignEstablishments(ctx context.Context, userID uint, establishmentIDs []uint) error
	UnassignEstablishments(ctx context.Context, userID uint, establishmentIDs []uint) error
	GetAdminEstablishmentIDs(ctx context.Context, userID uint) ([]uint, error)
	ListAdminEstablishments(ctx context.Context, userID uint) ([]*Establishment, error)
	// AdminHasDevice reports whether one of the admin's establishments has deviceID.
	AdminHasDevice(ctx context.Context, userID uint, deviceID string) (bool, error)

	CreateSensor(ctx context.Context, sensor *Sensor) error
	ListSensors(ctx context.Context) ([]*Sensor, error)
	// DeleteSensor removes the sensor and its establishment links.
	DeleteSensor(ctx context.Context, id uint) error
	// ExistingSensorIDs returns the subset of ids that exist, in input order.
	ExistingSensorIDs(ctx context.Context, ids []uint) ([]uint, error)

	CreateNotification(ctx context.Context, n *Notification) error
	HasPendingRequest(ctx context.Context, userID uint, deviceID string) (bool, error)
	// GetPendingRequest returns the access request with id while it is pending.
	GetPendingRequest(ctx context.Context, id uint) (*Notification, error)
	// ApproveRequest moves a pending request to approved and read. It
	// returns the number of rows updated.
	ApproveRequest(ctx context.Context, id uint) (int64, error)
	ListNotifications(ctx context.Context, filter NotificationFilter) ([]*Notification, error)
	// MarkNotificationsRead marks ids read, or every notification when ids is empty.
	MarkNotificationsRead(ctx context.Context, userID *uint, ids []uint) (int64, error)
	DeleteNotification(ctx context.Context, id uint, userID *uint) (int64, error)
	DeleteAllNotifications(ctx context.Context, userID uint) (int64, error)
	CountUnread(ctx context.Context, userID *uint) (int64, error)

	CreateEvent(ctx context.Context, event *Event) error
	GetEvent(ctx context.Context, id uint) (*Event, error)
	UpdateEvent(ctx context.Context, event *Event) error
	DeleteEvent(ctx context.Context, id uint) error
	ListEvents(ctx context.Context) ([]*Event, error)
	ListEventsOn(ctx context.Context, date string) ([]*Event, error)

	RecordSession(ctx context.Context, entry *SessionHistory) error
	ListSessionHistory(ctx context.Context, page, pageSize int) ([]*SessionHistory, int64, error)

	EnqueueMail(ctx context.Context, mail *MailOutbox) error
	PendingMail(ctx context.Context, maxAttempts, limit int) ([]*MailOutbox, error)
	MarkMailSent(ctx context.Context, id uint, at time.Time) error
	MarkMailFailed(ctx context.Context, id uint, reason string) error
}
