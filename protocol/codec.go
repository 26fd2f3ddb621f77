package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

const (
	// A frame that fails to parse is dropped, not fatal; this many
	// consecutive failures terminate the stream.
	maxConsecutiveBadFrames = 3

	// Generous upper bound for one frame, including a full snapshot.
	maxFrameSize = 1 << 20
)

var (
	// ErrMalformedFrame reports a single frame that failed to parse.
	// The stream remains usable; the caller should skip the frame.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrTooManyBadFrames reports that maxConsecutiveBadFrames frames in
	// a row failed to parse. The stream should be torn down.
	ErrTooManyBadFrames = errors.New("too many consecutive malformed frames")

	errFrameTooLarge = errors.New("frame exceeds size limit")
)

// Encoder writes newline-delimited messages to an underlying writer.
// It is not safe for concurrent use; callers serialize externally.
type Encoder struct {
	w io.Writer
}

// NewEncoder creates an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode marshals m and writes it as a single delimited frame. The
// frame is written with one Write call so a frame is never interleaved
// with another writer's output at the transport layer.
func (e *Encoder) Encode(m Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	data = append(data, '\n')
	if _, err := e.w.Write(data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Decoder reads newline-delimited messages from an underlying reader.
// It carries incomplete frames across Read calls, so truncated and
// coalesced reads both decode correctly.
type Decoder struct {
	r   *bufio.Reader
	bad int
	eof bool
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, 4096)}
}

// Decode returns the next complete message from the stream. It blocks
// until a full frame is available, the stream ends, or an error occurs.
// A parse failure on one frame returns ErrMalformedFrame and leaves the
// decoder usable for the next frame.
func (d *Decoder) Decode() (Message, error) {
	if d.eof {
		return Message{}, io.EOF
	}

	for {
		line, err := d.readFrame()
		if err != nil {
			if err == errFrameTooLarge {
				return Message{}, d.malformed()
			}
			if err == io.EOF {
				d.eof = true
				// A peer may close right after its final frame
				// without the trailing delimiter.
				if line = bytes.TrimSpace(line); len(line) > 0 {
					return d.parse(line)
				}
			}
			return Message{}, err
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		return d.parse(line)
	}
}

// readFrame accumulates bytes up to the next delimiter. The size cap is
// enforced while reading, so a peer streaming an endless unterminated
// frame cannot grow the buffer without bound; an oversized frame is
// drained through its delimiter and reported as errFrameTooLarge.
func (d *Decoder) readFrame() ([]byte, error) {
	var line []byte
	for {
		chunk, err := d.r.ReadSlice('\n')
		if len(line)+len(chunk) > maxFrameSize {
			if err == bufio.ErrBufferFull {
				err = d.drainFrame()
			}
			if err != nil {
				return nil, err
			}
			return nil, errFrameTooLarge
		}
		line = append(line, chunk...)
		if err == bufio.ErrBufferFull {
			continue
		}
		return line, err
	}
}

// drainFrame consumes through the next delimiter without retaining the
// bytes.
func (d *Decoder) drainFrame() error {
	for {
		_, err := d.r.ReadSlice('\n')
		if err == bufio.ErrBufferFull {
			continue
		}
		return err
	}
}

func (d *Decoder) parse(line []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(line, &m); err != nil {
		return Message{}, d.malformed()
	}
	d.bad = 0
	return m, nil
}

func (d *Decoder) malformed() error {
	d.bad++
	if d.bad >= maxConsecutiveBadFrames {
		return ErrTooManyBadFrames
	}
	return ErrMalformedFrame
}
