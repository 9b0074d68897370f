package transcoder

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"voicemailboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireFFmpeg(t *testing.T) string {
	t.Helper()
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not installed")
	}
	return path
}

// 테스트 입력용 WAV, 헤더 크기까지 기록
func fixtureWAV(t *testing.T, seconds float64) []byte {
	t.Helper()
	var buf bytes.Buffer
	ww, err := NewWAVWriter(&buf)
	require.NoError(t, err)
	pcm := sinePCM(seconds)
	_, err = ww.Write(pcm)
	require.NoError(t, err)
	require.NoError(t, ww.Close())

	// bytes.Buffer는 seek 불가 → 크기 직접 기록
	data := buf.Bytes()
	h := canonicalHeader(uint32(len(pcm)))
	var hb bytes.Buffer
	require.NoError(t, writeHeader(&hb, h))
	copy(data, hb.Bytes())
	return data
}

func TestFFmpeg_TranscodePipeRoundTrip(t *testing.T) {
	tc := New(requireFFmpeg(t), 0)

	out, err := os.Create(filepath.Join(t.TempDir(), "out.wav"))
	require.NoError(t, err)
	defer out.Close()

	// 파일이 아닌 reader → stdin 파이프 경로
	in := io.MultiReader(bytes.NewReader(fixtureWAV(t, 2)))
	require.NoError(t, tc.Transcode(context.Background(), in, "audio/wav", out))

	_, err = out.Seek(0, io.SeekStart)
	require.NoError(t, err)
	info, err := ReadWAVInfo(out)
	require.NoError(t, err)
	assert.Equal(t, uint32(SampleRate), info.SampleRate)
	assert.InDelta(t, 2.0, info.Duration, 0.05)
}

func TestFFmpeg_TranscodeNamedFile(t *testing.T) {
	tc := New(requireFFmpeg(t), 0)

	src := filepath.Join(t.TempDir(), "in.bin")
	require.NoError(t, os.WriteFile(src, fixtureWAV(t, 1), 0644))
	in, err := os.Open(src)
	require.NoError(t, err)
	defer in.Close()

	var out bytes.Buffer
	require.NoError(t, tc.Transcode(context.Background(), in, "", &out))
	info, err := ReadWAVInfo(bytes.NewReader(out.Bytes()))
	require.NoError(t, err)
	assert.True(t, info.Streaming)
	assert.InDelta(t, float64(bytesPerSecond), float64(out.Len()-headerSize), float64(bytesPerSecond)*0.05)
}

func TestFFmpeg_TruncatesAtCeiling(t *testing.T) {
	tc := New(requireFFmpeg(t), time.Second)

	out, err := os.Create(filepath.Join(t.TempDir(), "out.wav"))
	require.NoError(t, err)
	defer out.Close()

	require.NoError(t, tc.Transcode(context.Background(), bytes.NewReader(fixtureWAV(t, 3)), "wav", out))
	_, err = out.Seek(0, io.SeekStart)
	require.NoError(t, err)
	info, err := ReadWAVInfo(out)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, info.Duration, 0.05)
}

func TestFFmpeg_EmptyInput(t *testing.T) {
	tc := New(requireFFmpeg(t), 0)

	err := tc.Transcode(context.Background(), bytes.NewReader(nil), "audio/webm", io.Discard)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrTranscode))
}

func TestFFmpeg_GarbageInput(t *testing.T) {
	tc := New(requireFFmpeg(t), 0)

	err := tc.Transcode(context.Background(), strings.NewReader(strings.Repeat("not audio ", 200)), "", io.Discard)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrTranscode))

	var te *TranscodeError
	require.True(t, errors.As(err, &te))
	assert.NotEmpty(t, te.Diagnostic)
}

func TestFFmpeg_MissingBinary(t *testing.T) {
	tc := New(filepath.Join(t.TempDir(), "no-ffmpeg"), 0)
	err := tc.Transcode(context.Background(), bytes.NewReader([]byte("x")), "", io.Discard)
	assert.True(t, errors.Is(err, models.ErrTranscode))
}

func TestDemuxerFor(t *testing.T) {
	assert.Equal(t, "matroska", demuxerFor("audio/webm;codecs=opus"))
	assert.Equal(t, "ogg", demuxerFor("audio/ogg"))
	assert.Equal(t, "wav", demuxerFor("audio/wav"))
	assert.Equal(t, "", demuxerFor("audio/mp4"))
}

func TestNeedsSeekableInput(t *testing.T) {
	for _, hint := range []string{"audio/mp4", "audio/x-m4a", "video/quicktime", "application/octet-stream", ""} {
		assert.True(t, NeedsSeekableInput(hint), hint)
	}
	for _, hint := range []string{"audio/webm;codecs=opus", "audio/ogg", "audio/wav"} {
		assert.False(t, NeedsSeekableInput(hint), hint)
	}
}

func TestFFmpeg_TranscodeM4AFromFile(t *testing.T) {
	path := requireFFmpeg(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "clip.m4a")

	// moov atom이 파일 끝에 있는 일반 m4a
	gen := exec.Command(path, "-hide_banner", "-loglevel", "error",
		"-f", "lavfi", "-i", "sine=frequency=440:duration=1.5",
		"-c:a", "aac", src)
	if out, err := gen.CombinedOutput(); err != nil {
		t.Skipf("ffmpeg cannot encode aac: %v: %s", err, out)
	}

	in, err := os.Open(src)
	require.NoError(t, err)
	defer in.Close()
	out, err := os.Create(filepath.Join(dir, "out.wav"))
	require.NoError(t, err)
	defer out.Close()

	require.NoError(t, New(path, 0).Transcode(context.Background(), in, "audio/mp4", out))

	_, err = out.Seek(0, io.SeekStart)
	require.NoError(t, err)
	info, err := ReadWAVInfo(out)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, info.Duration, 0.1)
}
