package wire

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxFrameBytes bounds a single frame when callers do not configure a
// limit.
const DefaultMaxFrameBytes = 16 << 20

var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

// WriteFrame encodes v as one line of JSON and writes it with a single Write.
func WriteFrame(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	raw = append(raw, '\n')
	if _, err := w.Write(raw); err != nil {
		return err
	}
	return nil
}

// ReadFrame reads one newline-terminated frame, without the terminator. Blank
// lines are skipped. A clean EOF before any byte of a frame returns io.EOF; EOF
// inside a frame returns io.ErrUnexpectedEOF.
func ReadFrame(r *bufio.Reader, maxBytes int) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFrameBytes
	}
	var frame []byte
	for {
		chunk, err := r.ReadSlice('\n')
		if len(frame)+len(chunk) > maxBytes+1 {
			return nil, fmt.Errorf("%w (%d bytes)", ErrFrameTooLarge, maxBytes)
		}
		frame = append(frame, chunk...)
		switch {
		case err == nil:
			line := bytes.TrimRight(frame, "\r\n")
			if len(bytes.TrimSpace(line)) == 0 {
				frame = frame[:0]
				continue
			}
			return line, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if len(bytes.TrimSpace(frame)) == 0 {
				return nil, io.EOF
			}
			return nil, io.ErrUnexpectedEOF
		default:
			return nil, err
		}
	}
}

// Codec reads and writes envelopes over one connection. It is not safe for
// concurrent use; the protocol allows one outstanding request per connection.
type Codec struct {
	rw       io.ReadWriter
	reader   *bufio.Reader
	maxBytes int
}

// NewCodec wraps rw. maxBytes <= 0 selects DefaultMaxFrameBytes.
func NewCodec(rw io.ReadWriter, maxBytes int) *Codec {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFrameBytes
	}
	return &Codec{rw: rw, reader: bufio.NewReader(rw), maxBytes: maxBytes}
}

func (c *Codec) WriteRequest(req Request) error { return WriteFrame(c.rw, req) }

func (c *Codec) WriteResponse(resp Response) error { return WriteFrame(c.rw, resp) }

// ReadRequest returns the decoded request even when validation fails so
// servers can echo its request id in the failure response.
func (c *Codec) ReadRequest() (Request, error) {
	frame, err := c.ReadFrame()
	if err != nil {
		return Request{}, err
	}
	return DecodeRequest(frame)
}

func (c *Codec) ReadResponse() (Response, error) {
	frame, err := c.ReadFrame()
	if err != nil {
		return Response{}, err
	}
	return DecodeResponse(frame)
}

// ReadFrame reads the next raw frame, leaving decoding to the caller.
func (c *Codec) ReadFrame() ([]byte, error) {
	return ReadFrame(c.reader, c.maxBytes)
}
