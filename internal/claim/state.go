package claim

import (
	"errors"
	"time"

	"voicemailboard/internal/models"
)

type State int

const (
	Idle State = iota
	CheckingAvailability
	Capturing
	Uploading
	Transcoding
	Committing
	Done
	Failed
)

var stateNames = [...]string{
	Idle:                 "idle",
	CheckingAvailability: "checking_availability",
	Capturing:            "capturing",
	Uploading:            "uploading",
	Transcoding:          "transcoding",
	Committing:           "committing",
	Done:                 "done",
	Failed:               "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Reason is the short failure label used in logs and metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return "claimed"
	case errors.Is(err, models.ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, models.ErrCodeOccupied):
		return "code_occupied"
	case errors.Is(err, models.ErrMissingAudio):
		return "missing_audio"
	case errors.Is(err, models.ErrTranscode):
		return "transcode_error"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrBackendUnavailable):
		return "backend_unavailable"
	}
	return "internal"
}

// Attempt is one run of the claim state machine for a single number.
// It is owned by one goroutine.
type Attempt struct {
	Number    string
	State     State
	Trace     []State
	Err       error
	Recording models.Recording
	StartedAt time.Time
	Elapsed   time.Duration
}

func newAttempt(number string) *Attempt {
	return &Attempt{
		Number:    number,
		State:     Idle,
		Trace:     []State{Idle},
		StartedAt: time.Now(),
	}
}

func (a *Attempt) transition(s State) {
	a.State = s
	a.Trace = append(a.Trace, s)
	if s == Done || s == Failed {
		a.Elapsed = time.Since(a.StartedAt)
	}
}

func (a *Attempt) fail(err error) error {
	a.Err = err
	a.transition(Failed)
	return err
}

// Finished reports whether the attempt reached Done or Failed.
func (a *Attempt) Finished() bool {
	return a.State == Done || a.State == Failed
}
