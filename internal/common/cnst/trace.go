package cnst

// Tracer names used across the services
const (
	TraceAPIServer = "hydrowatch/apiserver"
	TraceRealtime  = "hydrowatch/realtime"
	TraceMailer    = "hydrowatch/mailer"
)

// Span names for the transactional workflows
const (
	SpanAdminCreate      = "workflow.admin.create"
	SpanAccessRequest    = "workflow.access_request.create"
	SpanAccessApprove    = "workflow.access_request.approve"
	SpanEstablishmentNew = "workflow.establishment.create"
	SpanEstablishmentSet = "workflow.establishment.update"
	SpanSignup           = "workflow.signup"
	SpanAdminAssign      = "workflow.admin.assign"
	SpanUserDelete       = "workflow.user.delete"
	SpanReadingIngest    = "realtime.reading.ingest"
)

// Common attribute keys
const (
	AttrUserID          = "user.id"
	AttrDeviceID        = "device.id"
	AttrEstablishmentID = "establishment.id"
	AttrMetric          = "sensor.metric"
	AttrOutcome         = "workflow.outcome"
)
