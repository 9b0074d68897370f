package transcoder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// 저장되는 모든 녹음의 표준 포맷: PCM s16le, mono, 16kHz
const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16

	headerSize     = 44
	streamingSize  = 0xFFFFFFFF
	bytesPerSecond = SampleRate * Channels * BitsPerSample / 8
)

// WAVHeader is the canonical 44-byte RIFF/WAVE PCM header.
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // file size - 8
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32
}

func canonicalHeader(dataSize uint32) WAVHeader {
	chunkSize := uint32(streamingSize)
	if dataSize != streamingSize {
		chunkSize = 36 + dataSize
	}
	return WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     chunkSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   Channels,
		SampleRate:    SampleRate,
		ByteRate:      bytesPerSecond,
		BlockAlign:    Channels * BitsPerSample / 8,
		BitsPerSample: BitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}
}

func writeHeader(w io.Writer, h WAVHeader) error {
	return binary.Write(w, binary.LittleEndian, h)
}

// WAVWriter frames raw canonical PCM as a WAV stream. If the destination
// is an io.WriteSeeker the header sizes are patched on Close; otherwise the
// header keeps the streaming size marker.
type WAVWriter struct {
	w      io.Writer
	seeker io.WriteSeeker
	start  int64
	n      int64
	closed bool
}

func NewWAVWriter(w io.Writer) (*WAVWriter, error) {
	ww := &WAVWriter{w: w}
	if s, ok := w.(io.WriteSeeker); ok {
		start, err := s.Seek(0, io.SeekCurrent)
		if err == nil {
			ww.seeker = s
			ww.start = start
		}
	}
	if err := writeHeader(w, canonicalHeader(streamingSize)); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}
	return ww, nil
}

func (ww *WAVWriter) Write(p []byte) (int, error) {
	if ww.closed {
		return 0, errors.New("write to closed WAVWriter")
	}
	n, err := ww.w.Write(p)
	ww.n += int64(n)
	return n, err
}

// DataSize returns the number of PCM bytes written so far.
func (ww *WAVWriter) DataSize() int64 { return ww.n }

// Close finalizes the header. It does not close the underlying writer.
func (ww *WAVWriter) Close() error {
	if ww.closed {
		return nil
	}
	ww.closed = true
	if ww.seeker == nil {
		return nil
	}
	if ww.n > streamingSize-36 {
		return fmt.Errorf("WAV data too large: %d bytes", ww.n)
	}
	if _, err := ww.seeker.Seek(ww.start, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to WAV header: %w", err)
	}
	if err := writeHeader(ww.seeker, canonicalHeader(uint32(ww.n))); err != nil {
		return fmt.Errorf("failed to rewrite WAV header: %w", err)
	}
	if _, err := ww.seeker.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to WAV end: %w", err)
	}
	return nil
}

type WAVInfo struct {
	SampleRate    uint32  `json:"sample_rate"`
	Channels      uint16  `json:"channels"`
	BitsPerSample uint16  `json:"bits_per_sample"`
	DataSize      uint32  `json:"data_size_bytes"`
	Duration      float64 `json:"duration_seconds"`
	Streaming     bool    `json:"streaming"`
}

// ReadWAVInfo parses a canonical header. Streaming headers report
// Streaming=true and no duration.
func ReadWAVInfo(r io.Reader) (*WAVInfo, error) {
	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("WAV data too short: %w", err)
	}
	var h WAVHeader
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("failed to read WAV header: %w", err)
	}
	if string(h.ChunkID[:]) != "RIFF" || string(h.Format[:]) != "WAVE" {
		return nil, errors.New("invalid WAV file: missing RIFF/WAVE header")
	}
	if string(h.Subchunk1ID[:]) != "fmt " || string(h.Subchunk2ID[:]) != "data" {
		return nil, errors.New("invalid WAV file: unexpected chunk layout")
	}
	if h.AudioFormat != 1 {
		return nil, fmt.Errorf("unsupported audio format: %d (only PCM is supported)", h.AudioFormat)
	}
	if h.SampleRate == 0 || h.NumChannels == 0 || h.BitsPerSample == 0 {
		return nil, errors.New("invalid WAV file: zero format field")
	}

	info := &WAVInfo{
		SampleRate:    h.SampleRate,
		Channels:      h.NumChannels,
		BitsPerSample: h.BitsPerSample,
		DataSize:      h.Subchunk2Size,
		Streaming:     h.Subchunk2Size == streamingSize,
	}
	if !info.Streaming {
		perSecond := float64(h.SampleRate) * float64(h.NumChannels) * float64(h.BitsPerSample) / 8
		info.Duration = float64(h.Subchunk2Size) / perSecond
	}
	return info, nil
}
