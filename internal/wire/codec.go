package wire

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// DefaultMaxFrameBytes is the default cap on a single frame's payload size
// (128 MiB, per the wire framing design).
const DefaultMaxFrameBytes = 128 * 1024 * 1024

// ErrFrameTooLarge is returned when a frame's declared length exceeds the
// configured cap.
type ErrFrameTooLarge struct {
	Declared uint32
	Max      uint32
}

func (e *ErrFrameTooLarge) Error() string {
	return fmt.Sprintf("wire: frame length %d exceeds cap %d", e.Declared, e.Max)
}

// bufferPool reduces allocation overhead for the common case of encoding a
// small envelope per request.
var bufferPool = sync.Pool{
	New: func() interface{} { return bytes.NewBuffer(make([]byte, 0, 1024)) },
}

func getBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func putBuffer(buf *bytes.Buffer) {
	if buf.Cap() <= 1<<20 {
		bufferPool.Put(buf)
	}
}

func marshalCompact(v interface{}) ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	data := buf.Bytes()
	if len(data) > 0 && data[len(data)-1] == '\n' {
		data = data[:len(data)-1]
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// WriteEnvelope writes env to w as a 4-byte big-endian length prefix
// followed by its JSON encoding.
func WriteEnvelope(w io.Writer, env *Envelope) error {
	payload, err := marshalCompact(env)
	if err != nil {
		return err
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

// ReadEnvelope reads one length-prefixed JSON envelope from r, rejecting
// frames that declare a length above maxBytes (0 uses DefaultMaxFrameBytes).
func ReadEnvelope(r io.Reader, maxBytes uint32) (*Envelope, error) {
	if maxBytes == 0 {
		maxBytes = DefaultMaxFrameBytes
	}
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxBytes {
		return nil, &ErrFrameTooLarge{Declared: n, Max: maxBytes}
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("wire: undecodable payload: %w", err)
	}
	return &env, nil
}
