package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Chunk sizes come from the stream, so cap them before allocating.
const (
	maxFmtChunkBytes  = 64 << 10
	maxDataChunkBytes = 256 << 20
)

// WAVInfo holds the format fields of a parsed WAV file.
type WAVInfo struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// ReadWAV parses a RIFF/WAV stream and returns normalized float32 samples.
// Only uncompressed 16-bit PCM with one or two channels is supported; stereo
// samples are returned interleaved (downmix with [StereoToMono]). Unknown
// chunks (LIST, fact, ...) are skipped.
func ReadWAV(r io.Reader) ([]float32, WAVInfo, error) {
	var info WAVInfo

	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, info, fmt.Errorf("audio: read RIFF header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, info, errors.New("audio: not a RIFF/WAVE stream")
	}

	var (
		fmtSeen bool
		data    []byte
	)
	for data == nil {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, info, errors.New("audio: missing data chunk")
			}
			return nil, info, fmt.Errorf("audio: read chunk header: %w", err)
		}
		size := binary.LittleEndian.Uint32(chunk[4:8])

		switch string(chunk[0:4]) {
		case "fmt ":
			if size > maxFmtChunkBytes {
				return nil, info, fmt.Errorf("audio: fmt chunk of %d bytes exceeds %d byte limit", size, maxFmtChunkBytes)
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, info, fmt.Errorf("audio: read fmt chunk: %w", err)
			}
			if size < 16 {
				return nil, info, errors.New("audio: fmt chunk too short")
			}
			format := binary.LittleEndian.Uint16(body[0:2])
			info.Channels = int(binary.LittleEndian.Uint16(body[2:4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			info.BitsPerSample = int(binary.LittleEndian.Uint16(body[14:16]))
			if format != 1 {
				return nil, info, fmt.Errorf("audio: unsupported WAV format code %d (want PCM)", format)
			}
			if info.BitsPerSample != 16 {
				return nil, info, fmt.Errorf("audio: unsupported bit depth %d (want 16)", info.BitsPerSample)
			}
			if info.Channels != 1 && info.Channels != 2 {
				return nil, info, fmt.Errorf("audio: unsupported channel count %d (want mono or stereo)", info.Channels)
			}
			fmtSeen = true

		case "data":
			if !fmtSeen {
				return nil, info, errors.New("audio: data chunk before fmt chunk")
			}
			if size > maxDataChunkBytes {
				return nil, info, fmt.Errorf("audio: data chunk of %d bytes exceeds %d byte limit", size, maxDataChunkBytes)
			}
			data = make([]byte, size)
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, info, fmt.Errorf("audio: read data chunk: %w", err)
			}

		default:
			// Pad byte keeps chunks 2-byte aligned.
			skip := int64(size)
			if size%2 != 0 {
				skip++
			}
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				return nil, info, fmt.Errorf("audio: skip chunk %q: %w", chunk[0:4], err)
			}
		}
	}

	return DecodePCM16(data), info, nil
}
