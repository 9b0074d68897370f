package transcoder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"voicemailboard/internal/models"

	"github.com/sirupsen/logrus"
)

// 녹음 최대 길이 (클라이언트 타이머와 동일)
const DefaultMaxDuration = 30 * time.Second

const diagnosticLimit = 4096

// TranscodeError carries ffmpeg's stderr so callers can log why decoding failed.
type TranscodeError struct {
	Hint       string
	Diagnostic string
	Err        error
}

func (e *TranscodeError) Error() string {
	msg := fmt.Sprintf("transcode %q failed: %v", e.Hint, e.Err)
	if e.Diagnostic != "" {
		msg += ": " + e.Diagnostic
	}
	return msg
}

func (e *TranscodeError) Unwrap() []error {
	return []error{models.ErrTranscode, e.Err}
}

// FFmpeg converts any ffmpeg-decodable input into canonical WAV.
type FFmpeg struct {
	Path        string
	MaxDuration time.Duration
}

func New(path string, maxDuration time.Duration) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	if maxDuration <= 0 {
		maxDuration = DefaultMaxDuration
	}
	return &FFmpeg{Path: path, MaxDuration: maxDuration}
}

// 브라우저 MIME 타입 → ffmpeg demuxer, 모르는 형식은 자동 감지
func demuxerFor(hint string) string {
	h := strings.ToLower(hint)
	switch {
	case strings.Contains(h, "webm"), strings.Contains(h, "matroska"), strings.Contains(h, "mkv"):
		return "matroska"
	case strings.Contains(h, "ogg"), strings.Contains(h, "opus"):
		return "ogg"
	case strings.Contains(h, "wav"), strings.Contains(h, "wave"):
		return "wav"
	}
	return ""
}

// NeedsSeekableInput reports whether hint names a container ffmpeg cannot
// decode from a pipe. mp4/m4a keep the moov atom at the end, and an unknown
// hint may be one of them.
func NeedsSeekableInput(hint string) bool {
	return demuxerFor(hint) == ""
}

// Transcode streams in through ffmpeg and writes canonical WAV to out.
// A named *os.File is handed to ffmpeg by path so seek-dependent containers
// (mp4/m4a) decode; any other reader is piped through stdin.
func (f *FFmpeg) Transcode(ctx context.Context, in io.Reader, hint string, out io.Writer) error {
	args := []string{"-hide_banner", "-loglevel", "error"}

	var stdin io.Reader
	if file, ok := in.(*os.File); ok && file.Name() != "" && file != os.Stdin {
		args = append(args, "-i", file.Name())
	} else {
		if demuxer := demuxerFor(hint); demuxer != "" {
			args = append(args, "-f", demuxer)
		}
		args = append(args, "-i", "pipe:0")
		stdin = in
	}

	args = append(args,
		"-vn",
		"-t", strconv.FormatFloat(f.MaxDuration.Seconds(), 'f', 3, 64),
		"-ac", strconv.Itoa(Channels),
		"-ar", strconv.Itoa(SampleRate),
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"pipe:1",
	)

	wav, err := NewWAVWriter(out)
	if err != nil {
		return err
	}

	stderr := &tailBuffer{limit: diagnosticLimit}
	cmd := exec.CommandContext(ctx, f.Path, args...)
	cmd.Stdin = stdin
	cmd.Stdout = wav
	cmd.Stderr = stderr
	// 입력 스트림이 아직 열려 있어도 ffmpeg 종료 후 Wait가 반환되도록
	cmd.WaitDelay = 2 * time.Second

	start := time.Now()
	runErr := cmd.Run()
	if runErr != nil && errors.Is(runErr, exec.ErrWaitDelay) && cmd.ProcessState != nil && cmd.ProcessState.Success() {
		runErr = nil
	}
	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			runErr = ctxErr
		}
		return &TranscodeError{Hint: hint, Diagnostic: stderr.String(), Err: runErr}
	}
	if err := wav.Close(); err != nil {
		return &TranscodeError{Hint: hint, Err: err}
	}
	if wav.DataSize() == 0 {
		return &TranscodeError{Hint: hint, Diagnostic: stderr.String(), Err: errors.New("no audio decoded")}
	}

	logrus.WithFields(logrus.Fields{
		"hint":    hint,
		"bytes":   wav.DataSize(),
		"seconds": float64(wav.DataSize()) / bytesPerSecond,
		"elapsed": time.Since(start).String(),
	}).Debug("FFmpeg.Transcode(): done")
	return nil
}

// stderr의 마지막 부분만 보관
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}
