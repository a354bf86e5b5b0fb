package log

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldError        = "error"
	FieldOperation    = "operation"
	FieldDuration     = "duration_ms"
	FieldObligationID = "obligation_id"
	FieldAccountID    = "account_id"
	FieldMonthID      = "month_id"
	FieldMonthStart   = "month_start"
	FieldBucketID     = "bucket_id"
	FieldDueDate      = "due_date"
	FieldAmountCents  = "amount_cents"
	FieldGenerated    = "generated"
	FieldReconciled   = "reconciled"
	FieldFailures     = "failures"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentCLI        = "cli"
	ComponentWorker     = "worker"
	ComponentGeneration = "generation"
	ComponentRegistry   = "registry"
	ComponentPlanner    = "planner"
	ComponentBulk       = "bulk"
	ComponentStorage    = "storage"
	ComponentAMQP       = "amqp"
	ComponentCache      = "cache"
	ComponentSeed       = "seed"
	ComponentBackend    = "backend"
	ComponentMetrics    = "metrics"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpGenerate = "generate"
	OpImport   = "import"
	OpPublish  = "publish"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds the error message; nil is ignored.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithObligation adds the obligation and the account it draws from.
func (f LogFields) WithObligation(obligationID, accountID string) LogFields {
	f[FieldObligationID] = obligationID
	f[FieldAccountID] = accountID
	return f
}

func (f LogFields) WithMonth(monthID, monthStart string) LogFields {
	f[FieldMonthID] = monthID
	f[FieldMonthStart] = monthStart
	return f
}

// WithGeneration adds the counters of one generation pass.
func (f LogFields) WithGeneration(generated, reconciled, failures int) LogFields {
	f[FieldGenerated] = generated
	f[FieldReconciled] = reconciled
	f[FieldFailures] = failures
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
