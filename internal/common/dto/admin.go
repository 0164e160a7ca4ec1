package dto

import (
	"github.com/amoylab/hydrowatch/internal/apiserver/database"
)

// CreateAdminRequest is the body of POST /admin
type CreateAdminRequest struct {
	Username         string `json:"username" binding:"required,max=50"`
	Email            string `json:"email" binding:"required,email"`
	Password         string `json:"password" binding:"required,min=8"`
	ConfirmPassword  string `json:"confirmPassword" binding:"required,eqfield=Password"`
	Role             string `json:"role" binding:"required"`
	EstablishmentIDs []uint `json:"establishmentIds" binding:"required,min=1,dive,gt=0"`
}

type CreateAdminResponse struct {
	Message          string `json:"message"`
	UserID           uint   `json:"userId"`
	EstablishmentIDs []uint `json:"establishmentIds"`
	EmailSent        bool   `json:"emailSent"`
}

// AdminInfo is an admin account with the establishments it manages
type AdminInfo struct {
	*database.User
	Establishments []*database.Establishment `json:"establishments"`
}

type AssignEstablishmentsRequest struct {
	EstablishmentIDs []uint `json:"establishmentIds" binding:"omitempty,dive,gt=0"`
}

type AccessRequest struct {
	DeviceID string `json:"deviceId" binding:"required"`
}

type ApproveAccessRequest struct {
	UserID uint `json:"userId" binding:"required,gt=0"`
}

type SessionHistoryPage struct {
	Items    []*database.SessionHistory `json:"items"`
	Total    int64                      `json:"total"`
	Page     int                        `json:"page"`
	PageSize int                        `json:"pageSize"`
}
