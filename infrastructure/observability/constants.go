package observability

// Metric name prefixes
const (
	MetricPrefix = "farmledger"
)

// Metric names
const (
	// Ledger metrics
	TransactionsRecordedTotal = MetricPrefix + ".ledger.transactions_recorded_total"
	DedupRejectionsTotal      = MetricPrefix + ".ledger.dedup_rejections_total"
	DriftCorrectionsTotal     = MetricPrefix + ".ledger.drift_corrections_total"

	// Referral metrics
	ReferralPayoutsTotal = MetricPrefix + ".referrals.payouts_total"

	// Farming metrics
	AccrualCyclesTotal    = MetricPrefix + ".farming.accrual_cycles_total"
	AccrualPositionsTotal = MetricPrefix + ".farming.positions_processed_total"

	// NATS metrics
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"

	// Database metrics
	DatabaseQueriesTotal  = MetricPrefix + ".database.queries_total"
	DatabaseQueryDuration = MetricPrefix + ".database.query_duration"
)

// Label keys
const (
	LabelKind      = "kind"
	LabelCurrency  = "currency"
	LabelLevel     = "level"
	LabelOutcome   = "outcome"
	LabelEventType = "event_type"

	// Database labels
	LabelRepository = "repository"
	LabelMethod     = "method"
)

// Accrual cycle outcomes
const (
	OutcomeCompleted = "completed"
	OutcomeOverlap   = "overlap"
	OutcomeFailed    = "failed"
)
