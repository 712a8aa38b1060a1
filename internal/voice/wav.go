package voice

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// WAVFormat is the PCM layout of a WAV asset.
type WAVFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// StationFormat is the layout both backends are asked for and the
// output device is opened with.
var StationFormat = WAVFormat{SampleRate: SampleRate, Channels: ChannelCount, BitDepth: BitDepth}

func (f WAVFormat) String() string {
	return fmt.Sprintf("%d Hz/%d ch/%d-bit", f.SampleRate, f.Channels, f.BitDepth)
}

// ErrNotWAV is returned for assets that are not PCM RIFF/WAVE files.
var ErrNotWAV = errors.New("not a PCM WAV file")

// FormatError reports an asset whose layout differs from the one the
// output device plays. Playing it anyway would run at the wrong speed.
type FormatError struct {
	Path string
	Want WAVFormat
	Got  WAVFormat
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s is %s, output expects %s", e.Path, e.Got, e.Want)
}

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
	maxFmtChunk         = 1 << 10
	unknownDataSize     = 0xFFFFFFFF
)

// asset is an open WAV file positioned at its first PCM byte.
type asset struct {
	io.Reader
	f *os.File
}

func (a *asset) Close() error { return a.f.Close() }

// openAsset opens the WAV file at path, checks it against want and
// returns a reader over its PCM samples only.
func openAsset(path string, want WAVFormat) (*asset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening asset: %w", err)
	}
	br := bufio.NewReader(f)
	got, size, err := readWAVHeader(br)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if got != want {
		f.Close()
		return nil, &FormatError{Path: path, Want: want, Got: got}
	}

	var pcm io.Reader = br
	if size >= 0 {
		pcm = io.LimitReader(br, size)
	}
	return &asset{Reader: pcm, f: f}, nil
}

// readWAVHeader walks the RIFF chunks up to "data" and leaves r at the
// first sample. The returned size is -1 when the header does not state
// it, as in streamed synthesis output.
func readWAVHeader(r io.Reader) (WAVFormat, int64, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return WAVFormat{}, 0, ErrNotWAV
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return WAVFormat{}, 0, ErrNotWAV
	}

	var (
		format  WAVFormat
		haveFmt bool
		hdr     [8]byte
	)
	for {
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return WAVFormat{}, 0, fmt.Errorf("%w: no data chunk", ErrNotWAV)
		}
		id := string(hdr[0:4])
		size := binary.LittleEndian.Uint32(hdr[4:8])

		switch id {
		case "fmt ":
			if size < 16 || size > maxFmtChunk {
				return WAVFormat{}, 0, fmt.Errorf("%w: fmt chunk of %d bytes", ErrNotWAV, size)
			}
			body := make([]byte, size+size%2)
			if _, err := io.ReadFull(r, body); err != nil {
				return WAVFormat{}, 0, fmt.Errorf("%w: short fmt chunk", ErrNotWAV)
			}
			tag := binary.LittleEndian.Uint16(body[0:2])
			if tag != wavFormatPCM && tag != wavFormatExtensible {
				return WAVFormat{}, 0, fmt.Errorf("%w: encoding tag %#x", ErrNotWAV, tag)
			}
			format = WAVFormat{
				Channels:   int(binary.LittleEndian.Uint16(body[2:4])),
				SampleRate: int(binary.LittleEndian.Uint32(body[4:8])),
				BitDepth:   int(binary.LittleEndian.Uint16(body[14:16])),
			}
			haveFmt = true
		case "data":
			if !haveFmt {
				return WAVFormat{}, 0, fmt.Errorf("%w: data before fmt", ErrNotWAV)
			}
			if size == unknownDataSize {
				return format, -1, nil
			}
			return format, int64(size), nil
		default:
			// Chunks are word-aligned.
			if _, err := io.CopyN(io.Discard, r, int64(size)+int64(size%2)); err != nil {
				return WAVFormat{}, 0, fmt.Errorf("%w: truncated %q chunk", ErrNotWAV, id)
			}
		}
	}
}
