package models

import (
	"encoding/binary"
	"errors"
	"fmt"
	json "github.com/goccy/go-json"
	"io"
)

// RecordType tags a record in a checkpoint stream.
type RecordType uint8

const (
	RecordEnd RecordType = iota
	RecordRoutes
	RecordMessages
	RecordOwnObjects
	RecordPoint
)

func (t RecordType) String() string {
	switch t {
	case RecordEnd:
		return "end"
	case RecordRoutes:
		return "routes"
	case RecordMessages:
		return "messages"
	case RecordOwnObjects:
		return "own-objects"
	case RecordPoint:
		return "point"
	default:
		return fmt.Sprintf("record(%d)", uint8(t))
	}
}

const maxRecordSize = 64 << 20

var (
	byteOrder = binary.LittleEndian

	// ErrTruncated means the stream ended before its end record.
	ErrTruncated = errors.New("record stream truncated")
)

// RecordWriter writes a checkpoint as a sequence of records, each a type
// byte and a uint32 length followed by a JSON payload.
type RecordWriter struct {
	w io.Writer
}

func NewRecordWriter(w io.Writer) *RecordWriter {
	return &RecordWriter{w: w}
}

func (rw *RecordWriter) Write(t RecordType, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", t, err)
	}
	return rw.writeRaw(t, payload)
}

func (rw *RecordWriter) writeRaw(t RecordType, payload []byte) error {
	var hdr [5]byte
	hdr[0] = byte(t)
	byteOrder.PutUint32(hdr[1:], uint32(len(payload)))
	if _, err := rw.w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := rw.w.Write(payload)
	return err
}

// End terminates the stream.
func (rw *RecordWriter) End() error {
	return rw.writeRaw(RecordEnd, nil)
}

type RecordReader struct {
	r    io.Reader
	done bool
}

func NewRecordReader(r io.Reader) *RecordReader {
	return &RecordReader{r: r}
}

// Next returns the next record. After the end record it returns io.EOF; a
// stream that stops earlier yields ErrTruncated.
func (rr *RecordReader) Next() (RecordType, []byte, error) {
	if rr.done {
		return RecordEnd, nil, io.EOF
	}
	var hdr [5]byte
	if _, err := io.ReadFull(rr.r, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, nil, ErrTruncated
		}
		return 0, nil, err
	}
	t := RecordType(hdr[0])
	n := byteOrder.Uint32(hdr[1:])
	if n > maxRecordSize {
		return 0, nil, fmt.Errorf("%s record of %d bytes exceeds limit", t, n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(rr.r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, nil, ErrTruncated
		}
		return 0, nil, err
	}
	if t == RecordEnd {
		rr.done = true
		return RecordEnd, nil, io.EOF
	}
	return t, payload, nil
}

// Expect reads the next record, which must be of type want, into v.
func (rr *RecordReader) Expect(want RecordType, v any) error {
	t, payload, err := rr.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("expected %s record: %w", want, ErrTruncated)
		}
		return err
	}
	if t != want {
		return fmt.Errorf("expected %s record, got %s", want, t)
	}
	return Decode(t, payload, v)
}

func Decode(t RecordType, payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decode %s: %w", t, err)
	}
	return nil
}
