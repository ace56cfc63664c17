package domain

import "time"

// StructuredRecord is one decoded business record. Fields keys depend on the
// record type.
type StructuredRecord struct {
	ID               int64          `db:"id"                json:"id"`
	UploadID         string         `db:"upload_id"         json:"upload_id"`
	LineNumber       int            `db:"line_number"       json:"line_number"`
	RecordType       string         `db:"record_type"       json:"record_type"`
	Fields           map[string]any `db:"fields"            json:"fields"`
	RawLine          string         `db:"raw_line"          json:"raw_line"`
	ProcessingMicros int64          `db:"processing_micros" json:"processing_micros"`
	CreatedAt        time.Time      `db:"created_at"        json:"created_at"`
}
