package dto

// EstablishmentRequest creates or replaces an establishment. Unknown sensor
// ids are dropped.
type EstablishmentRequest struct {
	Name     string `json:"name"`
	DeviceID string `json:"device_id"`
	Sensors  []uint `json:"sensors"`
}

type SensorRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Unit        string `json:"unit,omitempty" binding:"omitempty,max=20"`
	Description string `json:"description,omitempty"`
}
