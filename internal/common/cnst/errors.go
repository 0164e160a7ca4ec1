package cnst

import "errors"

var (
	// ErrNotFound is returned when a row is missing or an update matched nothing
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint would be violated
	ErrDuplicate = errors.New("duplicate record")
	// ErrAlreadyPending is returned when an access request for the same device is still pending
	ErrAlreadyPending = errors.New("access request already pending")
	// ErrLastSuperAdmin is returned when deleting would leave no Super Admin
	ErrLastSuperAdmin = errors.New("cannot delete the last super admin")
	// ErrInvalidEstablishment is returned when an establishment id does not exist
	ErrInvalidEstablishment = errors.New("invalid establishment id")
)
