package claim

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/iotest"

	"voicemailboard/internal/metrics"
	"voicemailboard/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRegistry is a create-if-absent map. staleFree makes IsFree lie so the
// authoritative Store check is exercised.
type memRegistry struct {
	mu        sync.Mutex
	recs      map[string][]byte
	staleFree bool
	down      bool
}

func newMemRegistry() *memRegistry { return &memRegistry{recs: map[string][]byte{}} }

func (m *memRegistry) IsFree(_ context.Context, number string) (bool, error) {
	if err := models.ValidateNumber(number); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return false, models.ErrBackendUnavailable
	}
	_, ok := m.recs[number]
	return m.staleFree || !ok, nil
}

func (m *memRegistry) Store(_ context.Context, number string, wav io.Reader) (models.Recording, error) {
	if err := models.ValidateNumber(number); err != nil {
		return models.Recording{}, err
	}
	data, err := io.ReadAll(wav)
	if err != nil {
		return models.Recording{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[number]; ok {
		return models.Recording{}, fmt.Errorf("%w: %s", models.ErrCodeOccupied, number)
	}
	m.recs[number] = data
	return models.Recording{Number: number, AudioRef: models.FileName(number)}, nil
}

func (m *memRegistry) Resolve(_ context.Context, number string) (models.Recording, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[number]; !ok {
		return models.Recording{}, models.ErrNotFound
	}
	return models.Recording{Number: number, AudioRef: models.FileName(number)}, nil
}

func (m *memRegistry) Link(_ context.Context, rec models.Recording) (string, error) {
	return "/uploads/" + rec.AudioRef, nil
}

func (m *memRegistry) Close() error { return nil }

func (m *memRegistry) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs)
}

// copyTranscoder prefixes its input so tests can see it ran.
type copyTranscoder struct {
	calls int
	err   error
}

func (c *copyTranscoder) Transcode(_ context.Context, in io.Reader, _ string, out io.Writer) error {
	c.calls++
	if c.err != nil {
		return c.err
	}
	io.WriteString(out, "WAV:")
	_, err := io.Copy(out, in)
	return err
}

func newTestWorkflow(t *testing.T, reg *memRegistry, tc Transcoder) (*Workflow, *metrics.Metrics) {
	t.Helper()
	m := metrics.NewMetrics(prometheus.NewRegistry())
	w, err := NewWorkflow(reg, tc, t.TempDir(), m)
	require.NoError(t, err)
	return w, m
}

func TestWorkflow_ClaimSuccess(t *testing.T) {
	reg := newMemRegistry()
	w, m := newTestWorkflow(t, reg, &copyTranscoder{})
	ctx := context.Background()

	free, err := w.CheckAvailability(ctx, "#1234")
	require.NoError(t, err)
	assert.True(t, free)

	a, err := w.Claim(ctx, "#1234", strings.NewReader("webm-bytes"), "audio/webm")
	require.NoError(t, err)
	assert.Equal(t, Done, a.State)
	assert.Equal(t, []State{Idle, Uploading, Transcoding, Committing, Done}, a.Trace)
	assert.Equal(t, "#1234", a.Recording.Number)
	assert.Equal(t, []byte("WAV:webm-bytes"), reg.recs["#1234"])

	free, err = w.CheckAvailability(ctx, "#1234")
	require.NoError(t, err)
	assert.False(t, free)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Claims.WithLabelValues("claimed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AvailabilityChecks.WithLabelValues("occupied")))
}

func TestWorkflow_SecondClaimRejected(t *testing.T) {
	reg := newMemRegistry()
	tc := &copyTranscoder{}
	w, _ := newTestWorkflow(t, reg, tc)
	ctx := context.Background()

	_, err := w.Claim(ctx, "#4321", strings.NewReader("one"), "")
	require.NoError(t, err)

	a, err := w.Claim(ctx, "#4321", strings.NewReader("two"), "")
	assert.True(t, errors.Is(err, models.ErrCodeOccupied))
	assert.Equal(t, Failed, a.State)
	assert.Equal(t, 1, tc.calls, "advisory re-check should skip transcoding")
	assert.Equal(t, []byte("WAV:one"), reg.recs["#4321"])
}

func TestWorkflow_AuthoritativeConflictAtCommit(t *testing.T) {
	reg := newMemRegistry()
	w, m := newTestWorkflow(t, reg, &copyTranscoder{})
	ctx := context.Background()

	// 두 세션이 모두 "사용 가능" 응답을 받은 뒤 녹음
	first, second := w.Begin("#5555"), w.Begin("#5555")
	require.NoError(t, w.Check(ctx, first))
	require.NoError(t, w.Check(ctx, second))
	assert.Equal(t, Capturing, first.State)
	assert.Equal(t, Capturing, second.State)

	require.NoError(t, w.Submit(ctx, first, strings.NewReader("first"), ""))

	reg.mu.Lock()
	reg.staleFree = true
	reg.mu.Unlock()

	err := w.Submit(ctx, second, strings.NewReader("second"), "")
	assert.True(t, errors.Is(err, models.ErrCodeOccupied))
	assert.Equal(t, []State{Idle, CheckingAvailability, Capturing, Uploading, Transcoding, Committing, Failed}, second.Trace)
	assert.Equal(t, 1, reg.count())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Claims.WithLabelValues("code_occupied")))
}

func TestWorkflow_CheckOccupied(t *testing.T) {
	reg := newMemRegistry()
	w, _ := newTestWorkflow(t, reg, &copyTranscoder{})
	ctx := context.Background()
	_, err := w.Claim(ctx, "#0001", strings.NewReader("x"), "")
	require.NoError(t, err)

	a := w.Begin("#0001")
	err = w.Check(ctx, a)
	assert.True(t, errors.Is(err, models.ErrCodeOccupied))
	assert.Equal(t, []State{Idle, CheckingAvailability, Failed}, a.Trace)

	assert.ErrorIs(t, w.Check(ctx, a), ErrAttemptFinished)
	assert.ErrorIs(t, w.Submit(ctx, a, strings.NewReader("x"), ""), ErrAttemptFinished)
}

func TestWorkflow_InvalidNumber(t *testing.T) {
	reg := newMemRegistry()
	tc := &copyTranscoder{}
	w, _ := newTestWorkflow(t, reg, tc)
	ctx := context.Background()

	for _, n := range []string{"1234", "#12", "#abcd", "#12345"} {
		_, err := w.CheckAvailability(ctx, n)
		assert.True(t, errors.Is(err, models.ErrInvalidCode), n)

		a, err := w.Claim(ctx, n, strings.NewReader("x"), "")
		assert.True(t, errors.Is(err, models.ErrInvalidCode), n)
		assert.Equal(t, Failed, a.State)
	}
	assert.Zero(t, tc.calls)
	assert.Zero(t, reg.count())
}

func TestWorkflow_MissingAudio(t *testing.T) {
	reg := newMemRegistry()
	tc := &copyTranscoder{}
	w, _ := newTestWorkflow(t, reg, tc)
	ctx := context.Background()

	_, err := w.Claim(ctx, "#1000", nil, "")
	assert.True(t, errors.Is(err, models.ErrMissingAudio))

	_, err = w.Claim(ctx, "#1000", bytes.NewReader(nil), "")
	assert.True(t, errors.Is(err, models.ErrMissingAudio))

	empty, err := os.Create(filepath.Join(t.TempDir(), "empty.webm"))
	require.NoError(t, err)
	defer empty.Close()
	_, err = w.Claim(ctx, "#1000", empty, "")
	assert.True(t, errors.Is(err, models.ErrMissingAudio))

	assert.Zero(t, tc.calls)
}

func TestWorkflow_TranscodeFailure(t *testing.T) {
	reg := newMemRegistry()
	w, m := newTestWorkflow(t, reg, &copyTranscoder{err: errors.New("Invalid data found when processing input")})

	a, err := w.Claim(context.Background(), "#2000", strings.NewReader("junk"), "")
	assert.True(t, errors.Is(err, models.ErrTranscode))
	assert.Equal(t, []State{Idle, Uploading, Transcoding, Failed}, a.Trace)
	assert.Zero(t, reg.count())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Claims.WithLabelValues("transcode_error")))
}

func TestWorkflow_BackendDown(t *testing.T) {
	reg := newMemRegistry()
	reg.down = true
	w, _ := newTestWorkflow(t, reg, &copyTranscoder{})

	_, err := w.Claim(context.Background(), "#3000", strings.NewReader("x"), "")
	assert.True(t, errors.Is(err, models.ErrBackendUnavailable))
	assert.Equal(t, "backend_unavailable", Reason(err))
}

func TestWorkflow_StagingFileRemoved(t *testing.T) {
	reg := newMemRegistry()
	m := metrics.NewMetrics(prometheus.NewRegistry())
	dir := t.TempDir()
	w, err := NewWorkflow(reg, &copyTranscoder{}, dir, m)
	require.NoError(t, err)

	_, err = w.Claim(context.Background(), "#3001", strings.NewReader("x"), "")
	require.NoError(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// nameTranscoder records whether it was handed a named file.
type nameTranscoder struct {
	copyTranscoder
	named []string
}

func (n *nameTranscoder) Transcode(ctx context.Context, in io.Reader, hint string, out io.Writer) error {
	name := ""
	if f, ok := in.(*os.File); ok {
		name = f.Name()
	}
	n.named = append(n.named, name)
	return n.copyTranscoder.Transcode(ctx, in, hint, out)
}

func TestWorkflow_SpoolsSeekDependentUploads(t *testing.T) {
	reg := newMemRegistry()
	dir := t.TempDir()
	tc := &nameTranscoder{}
	w, err := NewWorkflow(reg, tc, dir, metrics.NewMetrics(prometheus.NewRegistry()))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = w.Claim(ctx, "#4000", strings.NewReader("mp4-bytes"), "audio/mp4")
	require.NoError(t, err)
	_, err = w.Claim(ctx, "#4001", strings.NewReader("webm-bytes"), "audio/webm")
	require.NoError(t, err)

	require.Len(t, tc.named, 2)
	assert.Equal(t, dir, filepath.Dir(tc.named[0]), "mp4 should be read from a file in the temp dir")
	assert.Empty(t, tc.named[1], "webm should stream")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWorkflow_SpoolKeepsCaptureFailure(t *testing.T) {
	reg := newMemRegistry()
	w, _ := newTestWorkflow(t, reg, &copyTranscoder{})

	// 캡처 도중 끊긴 입력
	broken := io.MultiReader(strings.NewReader("partial"), iotest.ErrReader(fmt.Errorf("%w: disconnected", models.ErrMissingAudio)))
	_, err := w.Claim(context.Background(), "#4002", broken, "audio/mp4")
	assert.ErrorIs(t, err, models.ErrMissingAudio)

	free, err := reg.IsFree(context.Background(), "#4002")
	require.NoError(t, err)
	assert.True(t, free)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "checking_availability", CheckingAvailability.String())
	assert.Equal(t, "done", Done.String())
	assert.Equal(t, "unknown", State(99).String())
}
