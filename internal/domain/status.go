package domain

// RowStatus is the processing status of a raw import row.
type RowStatus string

const (
	RowStatusPending   RowStatus = "pending"
	RowStatusClaimed   RowStatus = "claimed"
	RowStatusProcessed RowStatus = "processed"
	RowStatusSkipped   RowStatus = "skipped"
	RowStatusFailed    RowStatus = "failed"
)

// Final reports whether no further encoding happens for the row without an
// explicit reprocess.
func (s RowStatus) Final() bool {
	switch s {
	case RowStatusProcessed, RowStatusSkipped, RowStatusFailed:
		return true
	default:
		return false
	}
}

const ReasonNotProcessable = "record_type_not_processable"
