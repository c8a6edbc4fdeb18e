package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"

	FieldInvoiceID = "invoice_id"
	FieldProvider  = "provider"
	FieldMonth     = "month"
	FieldAmount    = "amount"
	FieldKwh       = "kwh"
	FieldCount     = "count"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentInvoice   = "invoice"
	ComponentNormalize = "normalize"
	ComponentAnalytics = "analytics"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentExport    = "export"
	ComponentCache     = "cache"
)

// Operations defines standard operation names
const (
	OpIngest    = "ingest"
	OpRead      = "read"
	OpList      = "list"
	OpDelete    = "delete"
	OpAggregate = "aggregate"
	OpSync      = "sync"
	OpExport    = "export"
	OpStartup   = "startup"
	OpShutdown  = "shutdown"
)
