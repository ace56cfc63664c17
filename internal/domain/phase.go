package domain

import "fmt"

// Phase is a named state of the upload lifecycle.
type Phase string

const (
	PhaseStarted    Phase = "started"
	PhaseUploading  Phase = "uploading"
	PhaseUploaded   Phase = "uploaded"
	PhaseIdentified Phase = "identified"
	PhaseEncoding   Phase = "encoding"
	PhaseEncoded    Phase = "encoded"
	PhaseFailed     Phase = "failed"
	PhaseCompleted  Phase = "completed"
	PhaseDeleted    Phase = "deleted"
)

// successors is the forward state graph. Failure and soft delete are not
// modelled here: they are reachable from any non-terminal phase.
// failed -> identified is the re-identify path.
var successors = map[Phase][]Phase{
	PhaseStarted:    {PhaseUploading, PhaseUploaded},
	PhaseUploading:  {PhaseUploaded},
	PhaseUploaded:   {PhaseIdentified},
	PhaseIdentified: {PhaseEncoding},
	PhaseEncoding:   {PhaseEncoded},
	PhaseEncoded:    {PhaseCompleted},
	PhaseFailed:     {PhaseIdentified},
}

var ranks = map[Phase]int{
	PhaseStarted:    0,
	PhaseUploading:  1,
	PhaseUploaded:   2,
	PhaseIdentified: 3,
	PhaseEncoding:   4,
	PhaseEncoded:    5,
	PhaseCompleted:  6,
}

func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	if !p.Valid() {
		return "", NewValidationError("phase", fmt.Sprintf("unknown phase %q", s))
	}

	return p, nil
}

func (p Phase) Valid() bool {
	switch p {
	case PhaseStarted, PhaseUploading, PhaseUploaded, PhaseIdentified, PhaseEncoding,
		PhaseEncoded, PhaseFailed, PhaseCompleted, PhaseDeleted:
		return true
	default:
		return false
	}
}

// CanAdvanceTo reports whether target is a legal forward successor of p.
func (p Phase) CanAdvanceTo(target Phase) bool {
	for _, next := range successors[p] {
		if next == target {
			return true
		}
	}

	return false
}

// Terminal phases accept no transition other than rewind.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseDeleted
}

// InFlight phases imply that some pipeline work is still expected.
func (p Phase) InFlight() bool {
	switch p {
	case PhaseUploading, PhaseUploaded, PhaseIdentified, PhaseEncoding:
		return true
	default:
		return false
	}
}

// Rank orders the forward phases. Failed and deleted have no rank.
func (p Phase) Rank() (int, bool) {
	r, ok := ranks[p]
	return r, ok
}
