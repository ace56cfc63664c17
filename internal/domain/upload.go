package domain

import "time"

type Upload struct {
	ID                  string     `db:"id"                    json:"id"`
	Filename            string     `db:"filename"              json:"filename"`
	FileType            FileType   `db:"file_type"             json:"file_type"`
	SessionID           string     `db:"session_id"            json:"session_id,omitempty"`
	ByteSize            int64      `db:"byte_size"             json:"byte_size"`
	LineCount           *int       `db:"line_count"            json:"line_count"`
	Phase               Phase      `db:"phase"                 json:"phase"`
	Progress            int        `db:"progress"              json:"progress"`
	ContentKey          string     `db:"content_key"           json:"content_key,omitempty"`
	Checksum            string     `db:"checksum"              json:"checksum,omitempty"`
	LastError           string     `db:"last_error"            json:"last_error,omitempty"`
	CreatedAt           time.Time  `db:"created_at"            json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"            json:"updated_at"`
	UploadingAt         *time.Time `db:"uploading_at"          json:"uploading_at,omitempty"`
	UploadedAt          *time.Time `db:"uploaded_at"           json:"uploaded_at,omitempty"`
	IdentifiedAt        *time.Time `db:"identified_at"         json:"identified_at,omitempty"`
	EncodingStartedAt   *time.Time `db:"encoding_started_at"   json:"encoding_started_at,omitempty"`
	EncodingCompletedAt *time.Time `db:"encoding_completed_at" json:"encoding_completed_at,omitempty"`
	CompletedAt         *time.Time `db:"completed_at"          json:"completed_at,omitempty"`
	FailedAt            *time.Time `db:"failed_at"             json:"failed_at,omitempty"`
	CancelledAt         *time.Time `db:"cancelled_at"          json:"cancelled_at,omitempty"`
	DeletedAt           *time.Time `db:"deleted_at"            json:"deleted_at,omitempty"`
	DeletedBy           string     `db:"deleted_by"            json:"deleted_by,omitempty"`
}

// ContentInfo describes raw content persisted for an upload.
type ContentInfo struct {
	Key      string
	Size     int64
	Checksum string
}

// PhaseChange is everything written atomically with a phase transition.
type PhaseChange struct {
	To           Phase
	At           time.Time
	Progress     *int
	LineCount    *int
	ErrorMessage *string
	Content      *ContentInfo
	Cancelled    bool
	DeletedBy    string

	// Rewind moves the phase backward. No timestamp is stamped and the
	// timestamps of every later phase are cleared.
	Rewind bool
}

// Apply copies the change onto u, stamping the timestamp owned by the target
// phase.
func (c PhaseChange) Apply(u *Upload) {
	at := c.At
	u.Phase = c.To
	u.UpdatedAt = at

	if c.Rewind {
		u.clearAfter(c.To)
		return
	}

	switch c.To {
	case PhaseUploading:
		u.UploadingAt = &at
	case PhaseUploaded:
		u.UploadedAt = &at
	case PhaseIdentified:
		u.IdentifiedAt = &at
	case PhaseEncoding:
		u.EncodingStartedAt = &at
	case PhaseEncoded:
		u.EncodingCompletedAt = &at
	case PhaseCompleted:
		u.CompletedAt = &at
	case PhaseFailed:
		u.FailedAt = &at
	case PhaseDeleted:
		u.DeletedAt = &at
		u.DeletedBy = c.DeletedBy
	}

	if c.Cancelled {
		u.CancelledAt = &at
	}
	if c.Progress != nil {
		u.Progress = *c.Progress
	}
	if c.LineCount != nil {
		n := *c.LineCount
		u.LineCount = &n
	}
	if c.ErrorMessage != nil {
		u.LastError = *c.ErrorMessage
	}
	if c.Content != nil {
		u.ContentKey = c.Content.Key
		u.ByteSize = c.Content.Size
		u.Checksum = c.Content.Checksum
	}
}

func (u *Upload) clearAfter(p Phase) {
	rank, _ := p.Rank()

	stamps := []struct {
		phase Phase
		at    **time.Time
	}{
		{PhaseUploading, &u.UploadingAt},
		{PhaseUploaded, &u.UploadedAt},
		{PhaseIdentified, &u.IdentifiedAt},
		{PhaseEncoding, &u.EncodingStartedAt},
		{PhaseEncoded, &u.EncodingCompletedAt},
		{PhaseCompleted, &u.CompletedAt},
	}

	for _, s := range stamps {
		if r, _ := s.phase.Rank(); r > rank {
			*s.at = nil
		}
	}
}

// Evidence is what is known about an upload's supporting artifacts.
type Evidence struct {
	ContentPresent bool
	Rows           RowCounts
}

// LastKnownGood returns the latest phase whose timestamp is populated and
// whose artifacts are present.
func (u *Upload) LastKnownGood(ev Evidence) Phase {
	rowsComplete := u.LineCount != nil && ev.Rows.Total == *u.LineCount
	drained := rowsComplete && ev.Rows.Open() == 0

	switch {
	case u.CompletedAt != nil && u.EncodingCompletedAt != nil && drained:
		return PhaseCompleted
	case u.EncodingCompletedAt != nil && drained:
		return PhaseEncoded
	case u.IdentifiedAt != nil && rowsComplete:
		return PhaseIdentified
	case u.UploadedAt != nil && ev.ContentPresent:
		return PhaseUploaded
	default:
		return PhaseStarted
	}
}

// UploadFilter selects uploads for background workers. Deleted uploads are
// never returned.
type UploadFilter struct {
	Phases       []Phase
	UpdatedUntil *time.Time
	Limit        uint64
}

// UploadCounts groups uploads for the uploader status endpoint.
type UploadCounts struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}
