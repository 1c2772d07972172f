// Package savestate provides the byte buffer used to snapshot and restore
// emulator components.
//
// Components append their fields in a fixed order with the Write methods and
// read them back in the same order with the Read methods. Seal frames the
// payload with a header carrying a magic number, a format version, the
// payload length and an xxhash64 checksum; Open verifies the frame before
// any field is read.
package savestate

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cespare/xxhash"
)

// Version is the current payload format version.
const Version uint16 = 1

var magic = [4]byte{'G', 'B', 'A', 'C'}

const headerSize = 4 + 2 + 4 + 8

// Errors returned while opening or reading a state.
var (
	ErrCorrupt   = errors.New("corrupt save state")
	ErrTruncated = errors.New("truncated save state")
)

// State is an append-only little-endian buffer with a read cursor. Reads past
// the end return zero values and record ErrTruncated, checked by Close.
type State struct {
	raw          []byte
	readPosition int
	err          error
}

// Stater is implemented by components that can be saved to and loaded from
// a State.
type Stater interface {
	Save(*State)
	Load(*State)
}

// New creates an empty state for writing.
func New() *State {
	return &State{raw: make([]byte, 0, 256)}
}

// Write8 appends a byte.
func (s *State) Write8(v uint8) {
	s.raw = append(s.raw, v)
}

// Write16 appends a little-endian halfword.
func (s *State) Write16(v uint16) {
	s.raw = binary.LittleEndian.AppendUint16(s.raw, v)
}

// Write32 appends a little-endian word.
func (s *State) Write32(v uint32) {
	s.raw = binary.LittleEndian.AppendUint32(s.raw, v)
}

// Write64 appends a little-endian doubleword.
func (s *State) Write64(v uint64) {
	s.raw = binary.LittleEndian.AppendUint64(s.raw, v)
}

// WriteBool appends a boolean as one byte.
func (s *State) WriteBool(v bool) {
	if v {
		s.Write8(1)
	} else {
		s.Write8(0)
	}
}

// WriteData appends a length-prefixed byte slice.
func (s *State) WriteData(data []byte) {
	s.Write32(uint32(len(data)))
	s.raw = append(s.raw, data...)
}

// WriteString appends a length-prefixed string.
func (s *State) WriteString(v string) {
	s.WriteData([]byte(v))
}

func (s *State) take(n int) []byte {
	if s.err != nil {
		return nil
	}
	if n < 0 || s.readPosition+n > len(s.raw) {
		s.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d",
			ErrTruncated, n, s.readPosition, len(s.raw)-s.readPosition)
		return nil
	}
	b := s.raw[s.readPosition : s.readPosition+n]
	s.readPosition += n
	return b
}

// Read8 reads a byte.
func (s *State) Read8() uint8 {
	b := s.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// Read16 reads a little-endian halfword.
func (s *State) Read16() uint16 {
	b := s.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// Read32 reads a little-endian word.
func (s *State) Read32() uint32 {
	b := s.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// Read64 reads a little-endian doubleword.
func (s *State) Read64() uint64 {
	b := s.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// ReadBool reads a boolean.
func (s *State) ReadBool() bool {
	return s.Read8() != 0
}

// ReadData reads a length-prefixed byte slice.
func (s *State) ReadData() []byte {
	n := s.Read32()
	b := s.take(int(n))
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// ReadString reads a length-prefixed string.
func (s *State) ReadString() string {
	return string(s.ReadData())
}

// Err returns the first read error, if any.
func (s *State) Err() error {
	return s.err
}

// Close reports a read error or unread trailing bytes.
func (s *State) Close() error {
	if s.err != nil {
		return s.err
	}
	if s.readPosition != len(s.raw) {
		return fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(s.raw)-s.readPosition)
	}
	return nil
}

// Payload returns the bytes written so far, without a header.
func (s *State) Payload() []byte {
	return s.raw
}

// Seal returns the payload framed with the header.
func (s *State) Seal() []byte {
	out := make([]byte, 0, headerSize+len(s.raw))
	out = append(out, magic[:]...)
	out = binary.LittleEndian.AppendUint16(out, Version)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(s.raw)))
	out = binary.LittleEndian.AppendUint64(out, xxhash.Sum64(s.raw))
	return append(out, s.raw...)
}

// Open validates a sealed blob and returns a state positioned at the first
// payload byte.
func Open(data []byte) (*State, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrTruncated, len(data))
	}
	if [4]byte(data[:4]) != magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorrupt, data[:4])
	}
	if v := binary.LittleEndian.Uint16(data[4:6]); v != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, v)
	}

	length := binary.LittleEndian.Uint32(data[6:10])
	payload := data[headerSize:]
	if uint32(len(payload)) != length {
		return nil, fmt.Errorf("%w: payload is %d bytes, header says %d", ErrTruncated, len(payload), length)
	}
	if sum := binary.LittleEndian.Uint64(data[10:18]); sum != xxhash.Sum64(payload) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}

	return &State{raw: payload}, nil
}
