/**
* Name: 			session.go
* Description: 		스트리밍 녹음 세션 상태 관리
* Workflow: 		Start → Write(청크) → Stop(수동/시간초과/연결끊김) → 소비자에게 EOF
 */

package capture

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type StopReason string

const (
	StopNone       StopReason = ""
	StopManual     StopReason = "manual"
	StopCeiling    StopReason = "ceiling"
	StopDisconnect StopReason = "disconnect"
	StopAborted    StopReason = "aborted"
)

type State int

const (
	Idle State = iota
	Capturing
	Stopped
)

var (
	ErrNotStarted     = errors.New("capture session not started")
	ErrAlreadyStarted = errors.New("capture session already started")
	ErrStopped        = errors.New("capture session stopped")
)

// Session owns one caller's in-flight recording: the ceiling timer, the stop
// reason and the pipe feeding the claim workflow. Write blocks until the
// consumer reads, so a slow transcoder slows the socket reader down.
type Session struct {
	ID          string
	Number      string
	MaxDuration time.Duration

	mu      sync.Mutex
	state   State
	reason  StopReason
	started time.Time
	timer   *time.Timer
	pr      *io.PipeReader
	pw      *io.PipeWriter
	done    chan struct{}

	bytes atomic.Int64
}

func NewSession(number string, maxDuration time.Duration) *Session {
	pr, pw := io.Pipe()
	return &Session{
		ID:          uuid.New().String(),
		Number:      number,
		MaxDuration: maxDuration,
		pr:          pr,
		pw:          pw,
		done:        make(chan struct{}),
	}
}

// Start arms the ceiling timer and returns the audio stream.
func (s *Session) Start() (io.Reader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Idle {
		return nil, ErrAlreadyStarted
	}
	s.state = Capturing
	s.started = time.Now()
	if s.MaxDuration > 0 {
		s.timer = time.AfterFunc(s.MaxDuration, func() { s.Stop(StopCeiling) })
	}
	return s.pr, nil
}

// Write forwards one chunk of captured audio.
func (s *Session) Write(chunk []byte) error {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	switch state {
	case Idle:
		return ErrNotStarted
	case Stopped:
		return ErrStopped
	}

	n, err := s.pw.Write(chunk)
	s.bytes.Add(int64(n))
	if err != nil {
		return ErrStopped
	}
	return nil
}

// Stop ends capture; the consumer sees EOF once buffered data is read.
// Only the first Stop or Cancel has any effect. It reports whether this call
// stopped the session.
func (s *Session) Stop(reason StopReason) bool {
	return s.stop(reason, nil)
}

// Cancel ends capture and makes the consumer read err instead of EOF, so a
// partial recording is never committed.
func (s *Session) Cancel(reason StopReason, err error) bool {
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return s.stop(reason, err)
}

func (s *Session) stop(reason StopReason, err error) bool {
	s.mu.Lock()
	if s.state == Stopped {
		s.mu.Unlock()
		return false
	}
	s.state = Stopped
	s.reason = reason
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()

	if err != nil {
		s.pw.CloseWithError(err)
	} else {
		s.pw.Close()
	}
	close(s.done)
	return true
}

// Abort is called by the consumer when it stops reading. Pending and future
// writes fail immediately.
func (s *Session) Abort(err error) {
	if err == nil {
		err = io.ErrClosedPipe
	}
	s.pr.CloseWithError(err)
	s.Stop(StopAborted)
}

func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Reason() StopReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

func (s *Session) Bytes() int64 { return s.bytes.Load() }

// Remaining is the countdown shown to the caller.
func (s *Session) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Capturing || s.MaxDuration <= 0 {
		return 0
	}
	left := s.MaxDuration - time.Since(s.started)
	if left < 0 {
		return 0
	}
	return left
}
