package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldOperation   = "operation"
	FieldError       = "error"
	FieldErrorType   = "error_type"
	FieldDuration    = "duration_ms"
	FieldSuccess     = "success"
	FieldEventID     = "event_id"
	FieldHeadID      = "expense_head_id"
	FieldEntryID     = "expense_entry_id"
	FieldAmount      = "amount"
	FieldEvents      = "events"
	FieldHeads       = "expense_heads"
	FieldEntries     = "expense_entries"
	FieldSyncState   = "sync_state"
	FieldLastSync    = "last_sync"
	FieldBackend     = "backend"
	FieldDeviceID    = "device_id"
	FieldSheetsRef   = "sheets_ref"
	FieldSkipReason  = "skip_reason"
	FieldImportStats = "import_summary"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentLedger    = "ledger"
	ComponentReconcile = "reconcile"
	ComponentSync      = "sync"
	ComponentRemote    = "remote"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentReport    = "report"
	ComponentBackend   = "backend"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpImport   = "import"
	OpExport   = "export"
	OpSave     = "save"
	OpSync     = "sync"
	OpPull     = "pull"
	OpClear    = "clear"
	OpRender   = "render"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeConflict      = "conflict_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithErrorType adds the error category
func (f LogFields) WithErrorType(errorType string) LogFields {
	f[FieldErrorType] = errorType
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithCounts adds the size of each ledger collection
func (f LogFields) WithCounts(events, heads, entries int) LogFields {
	f[FieldEvents] = events
	f[FieldHeads] = heads
	f[FieldEntries] = entries
	return f
}

// WithSyncState adds sync state fields
func (f LogFields) WithSyncState(state string, lastSync string) LogFields {
	f[FieldSyncState] = state
	if lastSync != "" {
		f[FieldLastSync] = lastSync
	}
	return f
}

// With adds an arbitrary field
func (f LogFields) With(key string, value any) LogFields {
	f[key] = value
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
