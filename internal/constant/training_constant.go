package constant

// Training categories for ingested files.
const (
	TrainTypeSQL      = "sql"
	TrainTypeDocument = "document"
)

// Lifecycle of a training_files record.
const (
	TrainStatusPending = "pending"
	TrainStatusSuccess = "success"
	TrainStatusFailed  = "failed"
)

// Dedup identifier prefixes embedded into trained content.
const (
	DedupPrefixSQL = "sql"
	DedupPrefixDoc = "doc"
)
