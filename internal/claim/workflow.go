package claim

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"voicemailboard/internal/metrics"
	"voicemailboard/internal/models"
	"voicemailboard/internal/storage"
	"voicemailboard/internal/transcoder"

	"github.com/sirupsen/logrus"
)

// Transcoder converts arbitrary input audio into canonical WAV.
type Transcoder interface {
	Transcode(ctx context.Context, in io.Reader, hint string, out io.Writer) error
}

var ErrAttemptFinished = errors.New("claim attempt already finished")

// Workflow orchestrates check → transcode → store. The availability check is
// advisory; only Registry.Store decides who owns a number.
type Workflow struct {
	registry   storage.Registry
	transcoder Transcoder
	tempDir    string
	metrics    *metrics.Metrics
}

func NewWorkflow(registry storage.Registry, transcoder Transcoder, tempDir string, m *metrics.Metrics) (*Workflow, error) {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("NewWorkflow(): failed to create temp directory: %w", err)
	}
	return &Workflow{registry: registry, transcoder: transcoder, tempDir: tempDir, metrics: m}, nil
}

// CheckAvailability answers check_number. It never reserves the number.
func (w *Workflow) CheckAvailability(ctx context.Context, number string) (bool, error) {
	if err := models.ValidateNumber(number); err != nil {
		return false, err
	}
	free, err := w.registry.IsFree(ctx, number)
	if w.metrics != nil {
		result := "free"
		if err != nil {
			result = "error"
		} else if !free {
			result = "occupied"
		}
		w.metrics.AvailabilityChecks.WithLabelValues(result).Inc()
	}
	return free, err
}

// Begin starts an attempt in Idle.
func (w *Workflow) Begin(number string) *Attempt {
	return newAttempt(number)
}

// Check moves an Idle attempt through CheckingAvailability into Capturing.
func (w *Workflow) Check(ctx context.Context, a *Attempt) error {
	if a.State != Idle {
		return ErrAttemptFinished
	}
	a.transition(CheckingAvailability)
	free, err := w.CheckAvailability(ctx, a.Number)
	if err != nil {
		return w.finish(a, err)
	}
	if !free {
		return w.finish(a, fmt.Errorf("%w: %s", models.ErrCodeOccupied, a.Number))
	}
	a.transition(Capturing)
	return nil
}

// Claim runs a whole attempt for an already captured upload.
func (w *Workflow) Claim(ctx context.Context, number string, audio io.Reader, hint string) (*Attempt, error) {
	a := w.Begin(number)
	return a, w.Submit(ctx, a, audio, hint)
}

// Submit takes an Idle or Capturing attempt to Done or Failed. audio may be a
// live stream; it is consumed as the transcoder reads it.
func (w *Workflow) Submit(ctx context.Context, a *Attempt, audio io.Reader, hint string) error {
	if a.State != Idle && a.State != Capturing {
		return ErrAttemptFinished
	}
	a.transition(Uploading)

	if err := models.ValidateNumber(a.Number); err != nil {
		return w.finish(a, err)
	}
	input, err := nonEmpty(audio)
	if err != nil {
		return w.finish(a, err)
	}

	// 업로드 중 다른 사용자가 번호를 가져갔을 수 있음 (advisory)
	free, err := w.registry.IsFree(ctx, a.Number)
	if err != nil {
		return w.finish(a, err)
	}
	if !free {
		return w.finish(a, fmt.Errorf("%w: %s", models.ErrCodeOccupied, a.Number))
	}

	a.transition(Transcoding)
	if _, named := input.(*os.File); !named && transcoder.NeedsSeekableInput(hint) {
		spooled, err := w.spool(input)
		if err != nil {
			return w.finish(a, err)
		}
		defer func() {
			spooled.Close()
			os.Remove(spooled.Name())
		}()
		input = spooled
	}

	staging, err := os.CreateTemp(w.tempDir, "claim-*.wav")
	if err != nil {
		return w.finish(a, fmt.Errorf("Submit(): create staging file: %w", err))
	}
	defer func() {
		staging.Close()
		os.Remove(staging.Name())
	}()

	start := time.Now()
	if err := w.transcoder.Transcode(ctx, input, hint, staging); err != nil {
		// 캡처 도중 끊긴 입력은 변환 오류가 아니라 오디오 누락
		if !errors.Is(err, models.ErrTranscode) && !errors.Is(err, models.ErrMissingAudio) {
			err = fmt.Errorf("%w: %v", models.ErrTranscode, err)
		}
		return w.finish(a, err)
	}
	if w.metrics != nil {
		w.metrics.TranscodeDuration.Observe(time.Since(start).Seconds())
	}

	size, err := staging.Seek(0, io.SeekEnd)
	if err == nil {
		_, err = staging.Seek(0, io.SeekStart)
	}
	if err != nil {
		return w.finish(a, fmt.Errorf("Submit(): rewind staging file: %w", err))
	}

	a.transition(Committing)
	rec, err := w.registry.Store(ctx, a.Number, staging)
	if err != nil {
		return w.finish(a, err)
	}
	if w.metrics != nil {
		w.metrics.RecordingBytes.Observe(float64(size))
	}
	a.Recording = rec
	return w.finish(a, nil)
}

func (w *Workflow) finish(a *Attempt, err error) error {
	entry := logrus.WithFields(logrus.Fields{"number": a.Number, "trace": a.Trace})
	if err != nil {
		a.fail(err)
		reason := Reason(err)
		switch reason {
		case "code_occupied", "invalid_code", "missing_audio":
			entry.WithField("reason", reason).Infof("Workflow.finish(): claim rejected: %v", err)
		default:
			entry.WithField("reason", reason).Warnf("Workflow.finish(): claim failed: %v", err)
		}
		if w.metrics != nil {
			w.metrics.Claims.WithLabelValues(reason).Inc()
		}
		return err
	}
	a.transition(Done)
	entry.WithField("elapsed", a.Elapsed.String()).Info("Workflow.finish(): number claimed")
	if w.metrics != nil {
		w.metrics.Claims.WithLabelValues("claimed").Inc()
	}
	return nil
}

// spool copies audio into a temp file so the transcoder can open it by path.
func (w *Workflow) spool(audio io.Reader) (*os.File, error) {
	f, err := os.CreateTemp(w.tempDir, "upload-*")
	if err != nil {
		return nil, fmt.Errorf("Submit(): create spool file: %w", err)
	}
	_, err = io.Copy(f, audio)
	if err == nil {
		_, err = f.Seek(0, io.SeekStart)
	}
	if err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("Submit(): spool upload: %w", err)
	}
	return f, nil
}

// nonEmpty fails with ErrMissingAudio when audio carries no bytes. Named files
// are passed through untouched so the transcoder can open them by path.
func nonEmpty(audio io.Reader) (io.Reader, error) {
	if audio == nil {
		return nil, models.ErrMissingAudio
	}
	if f, ok := audio.(*os.File); ok {
		st, err := f.Stat()
		if err == nil && st.Mode().IsRegular() {
			if st.Size() == 0 {
				return nil, models.ErrMissingAudio
			}
			return f, nil
		}
	}
	br := bufio.NewReader(audio)
	if _, err := br.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, models.ErrMissingAudio
		}
		return nil, fmt.Errorf("%w: %v", models.ErrMissingAudio, err)
	}
	return br, nil
}
