package domain

import "time"

type RawImportRow struct {
	ID          int64      `db:"id"           json:"-"            csv:"-"`
	UploadID    string     `db:"upload_id"    json:"upload_id"    csv:"upload_id"`
	LineNumber  int        `db:"line_number"  json:"line_number"  csv:"line_number"`
	RawLine     string     `db:"raw_line"     json:"raw_line"     csv:"raw_line"`
	RecordType  string     `db:"record_type"  json:"record_type"  csv:"record_type"`
	Status      RowStatus  `db:"status"       json:"status"       csv:"status"`
	Reason      string     `db:"reason"       json:"reason"       csv:"reason"`
	RecordID    *int64     `db:"record_id"    json:"record_id"    csv:"record_id,omitempty"`
	ClaimToken  *string    `db:"claim_token"  json:"-"            csv:"-"`
	ClaimedAt   *time.Time `db:"claimed_at"   json:"-"            csv:"-"`
	ProcessedAt *time.Time `db:"processed_at" json:"processed_at" csv:"processed_at,omitempty"`
}

// RowCounts are raw import rows of one upload grouped by status.
type RowCounts struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Claimed   int `json:"claimed"`
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Open is the number of rows still awaiting an outcome.
func (c RowCounts) Open() int {
	return c.Pending + c.Claimed
}

func (c *RowCounts) Add(status RowStatus, n int) {
	c.Total += n

	switch status {
	case RowStatusPending:
		c.Pending += n
	case RowStatusClaimed:
		c.Claimed += n
	case RowStatusProcessed:
		c.Processed += n
	case RowStatusSkipped:
		c.Skipped += n
	case RowStatusFailed:
		c.Failed += n
	}
}

// Claim selects pending rows of one upload, oldest line first, and marks them
// claimed under Token. LineNumbers restricts the claim to those lines.
type Claim struct {
	UploadID    string
	Limit       int
	Token       string
	LineNumbers []int
	At          time.Time
}

// RowOutcome is the final status written for a claimed row.
type RowOutcome struct {
	RowID      int64
	LineNumber int
	Status     RowStatus
	Reason     string
	RecordID   *int64
}
