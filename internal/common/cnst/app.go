package cnst

const (
	AppName = "hydrowatch"
	// CtxKeyClaims is the gin context key holding the verified token claims
	CtxKeyClaims = "claims"
	// CtxKeyTraceID is the gin context key holding the request trace id
	CtxKeyTraceID = "trace_id"
	// HeaderBridgeKey carries the shared secret of the sensor bridge
	HeaderBridgeKey = "X-Bridge-Key"
	// HeaderTraceID lets callers supply their own trace id
	HeaderTraceID = "X-Trace-Id"
)
