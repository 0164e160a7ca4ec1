package database

import (
	"time"

	"github.com/amoylab/hydrowatch/internal/common/cnst"
)

// User is an account of any role
type User struct {
	ID               uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	Username         string     `json:"username" gorm:"type:varchar(50);uniqueIndex;not null"`
	Email            string     `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Phone            string     `json:"phone,omitempty" gorm:"type:varchar(32)"`
	Password         string     `json:"-" gorm:"not null"`
	Role             cnst.Role  `json:"role" gorm:"type:varchar(20);not null;default:'User';index"`
	IsVerified       bool       `json:"isVerified" gorm:"not null;default:false"`
	EmailVerified    bool       `json:"emailVerified" gorm:"not null;default:false"`
	VerificationCode string     `json:"-" gorm:"type:varchar(6)"`
	ResetOTP         string     `json:"-" gorm:"column:reset_otp;type:varchar(6)"`
	OTPExpiry        *time.Time `json:"-" gorm:"column:otp_expiry"`
	DeviceID         *string    `json:"deviceId,omitempty" gorm:"type:varchar(5);index"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// ApprovedDevice returns the bound device once an admin approved it, else ""
func (u *User) ApprovedDevice() string {
	if !u.IsVerified || u.DeviceID == nil {
		return ""
	}
	return *u.DeviceID
}

// Establishment is a site addressed by a five digit device id
type Establishment struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string    `json:"name" gorm:"type:varchar(255);uniqueIndex;not null"`
	DeviceID  string    `json:"device_id" gorm:"column:device_id;type:varchar(5);uniqueIndex;not null"`
	Sensors   []Sensor  `json:"sensors" gorm:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Sensor is a catalog entry
type Sensor struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string    `json:"name" gorm:"type:varchar(100);uniqueIndex;not null"`
	Unit        string    `json:"unit,omitempty" gorm:"type:varchar(20)"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
	CreatedAt   time.Time `json:"createdAt"`
}

// EstablishmentSensor links an establishment to a catalog sensor
type EstablishmentSensor struct {
	EstablishmentID uint      `json:"establishmentId" gorm:"primaryKey;autoIncrement:false"`
	SensorID        uint      `json:"sensorId" gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt       time.Time `json:"createdAt"`
}

// AdminEstablishment assigns an establishment to an admin user
type AdminEstablishment struct {
	UserID          uint      `json:"userId" gorm:"primaryKey;autoIncrement:false"`
	EstablishmentID uint      `json:"establishmentId" gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Notification is a persisted feed entry
type Notification struct {
	ID        uint                    `json:"id" gorm:"primaryKey;autoIncrement"`
	Type      cnst.NotificationType   `json:"type" gorm:"type:varchar(20);not null;index"`
	Title     string                  `json:"title" gorm:"type:varchar(255);not null"`
	Message   string                  `json:"message" gorm:"type:text"`
	UserID    *uint                   `json:"userId,omitempty" gorm:"index"`
	RelatedID *uint                   `json:"relatedId,omitempty"`
	DeviceID  string                  `json:"deviceId,omitempty" gorm:"type:varchar(5);index"`
	Priority  cnst.Priority           `json:"priority" gorm:"type:varchar(10);not null;default:'medium'"`
	Status    cnst.NotificationStatus `json:"status" gorm:"type:varchar(20);not null;default:'active';index"`
	IsRead    bool                    `json:"read" gorm:"not null;default:false"`
	CreatedAt time.Time               `json:"timestamp" gorm:"index"`
}

// Event is a scheduled calendar entry
type Event struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Title       string    `json:"title" gorm:"type:varchar(255);not null"`
	Date        string    `json:"date" gorm:"type:varchar(10);not null;index"` // YYYY-MM-DD
	Time        string    `json:"time" gorm:"type:varchar(5);not null"`        // HH:MM
	Description string    `json:"description" gorm:"type:text"`
	CreatedBy   uint      `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SessionHistory is an append-only login/logout record
type SessionHistory struct {
	ID         uint             `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID     uint             `json:"userId" gorm:"index"`
	Username   string           `json:"username" gorm:"type:varchar(50)"`
	Type       cnst.SessionType `json:"type" gorm:"type:varchar(10);not null"`
	IPAddress  string           `json:"ipAddress" gorm:"type:varchar(64)"`
	DeviceInfo string           `json:"deviceInfo" gorm:"type:varchar(512)"`
	CreatedAt  time.Time        `json:"timestamp" gorm:"index"`
}

func (SessionHistory) TableName() string {
	return "session_history"
}

// MailOutbox holds mail whose delivery failed and awaits retry
type MailOutbox struct {
	ID        uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	Recipient string     `json:"recipient" gorm:"type:varchar(255);not null"`
	Subject   string     `json:"subject" gorm:"type:varchar(255)"`
	Body      string     `json:"body" gorm:"type:text"`
	Attempts  int        `json:"attempts" gorm:"not null;default:0"`
	LastError string     `json:"lastError,omitempty" gorm:"type:text"`
	SentAt    *time.Time `json:"sentAt,omitempty" gorm:"index"`
	CreatedAt time.Time  `json:"createdAt"`
}

func (MailOutbox) TableName() string {
	return "mail_outbox"
}

// models lists every table for auto-migration
func models() []any {
	return []any{
		&User{},
		&Establishment{},
		&Sensor{},
		&EstablishmentSensor{},
		&AdminEstablishment{},
		&Notification{},
		&Event{},
		&SessionHistory{},
		&MailOutbox{},
	}
}
