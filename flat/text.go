package flat

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/CuylerR/Meta-sapling-OS/internal/node"
)

// Format selects a manifest text encoding.
type Format int

const (
	// V1 lines: {path}\0{40 hex}{flag}\n
	V1 Format = iota + 1
	// V2: \0 header, then {stemlen}{suffix}\0{flag}\n{20 byte node}\n
	V2
)

func (f Format) String() string {
	switch f {
	case V1:
		return "v1"
	case V2:
		return "v2"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ParseFormat accepts "v1" or "v2".
func ParseFormat(s string) (Format, error) {
	switch s {
	case "v1", "1", "":
		return V1, nil
	case "v2", "2":
		return V2, nil
	}
	return 0, fmt.Errorf("unknown manifest format %q", s)
}

const (
	v2Header = 0x00
	maxStem  = 255
)

var ErrMalformed = errors.New("flat: malformed manifest text")

// Writer renders entries, which must arrive in sorted order, as manifest
// text.
type Writer struct {
	buf    bytes.Buffer
	format Format
	prev   string
}

// NewWriter starts a text in the given format.
func NewWriter(format Format) *Writer {
	w := &Writer{format: format}
	if format == V2 {
		w.buf.WriteByte(v2Header)
	}
	return w
}

// Add appends one file record.
func (w *Writer) Add(path string, id node.ID, flag string) {
	if w.format == V2 {
		stem := min(commonPrefix(w.prev, path), maxStem)
		w.buf.WriteByte(byte(stem))
		w.buf.WriteString(path[stem:])
		w.buf.WriteByte(0)
		w.buf.WriteString(flag)
		w.buf.WriteByte('\n')
		w.buf.Write(id[:])
		w.buf.WriteByte('\n')
		w.prev = path
		return
	}

	w.buf.WriteString(path)
	w.buf.WriteByte(0)
	w.buf.WriteString(id.Hex())
	w.buf.WriteString(flag)
	w.buf.WriteByte('\n')
}

// Bytes returns the text written so far.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

func commonPrefix(a, b string) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// Record is one decoded line of manifest text.
type Record struct {
	Path string
	Node node.ID
	Flag string
}

// Decode parses manifest text in either format. V2 is recognised by its
// leading NUL. Records must be in strictly increasing path order.
func Decode(data []byte) ([]Record, error) {
	records, err := DecodeRecords(data)
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(records); i++ {
		if records[i-1].Path >= records[i].Path {
			return nil, fmt.Errorf("%w: %q not in sorted order", ErrMalformed, records[i].Path)
		}
	}
	return records, nil
}

// DecodeRecords parses records without checking their order. Callers with
// their own ordering rules (tree directories) validate it themselves.
func DecodeRecords(data []byte) ([]Record, error) {
	if len(data) > 0 && data[0] == v2Header {
		return decodeV2(data[1:])
	}
	return decodeV1(data)
}

func decodeV1(data []byte) ([]Record, error) {
	var records []Record
	for len(data) > 0 {
		nul := bytes.IndexByte(data, 0)
		if nul <= 0 {
			return nil, fmt.Errorf("%w: missing path terminator", ErrMalformed)
		}
		path := string(data[:nul])
		rest := data[nul+1:]
		if len(rest) < 2*node.Size+1 {
			return nil, fmt.Errorf("%w: %q: short line", ErrMalformed, path)
		}
		id, err := node.FromHex(string(rest[:2*node.Size]))
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrMalformed, path, err)
		}
		rest = rest[2*node.Size:]

		var flag string
		if rest[0] != '\n' {
			flag = string(rest[:1])
			rest = rest[1:]
		}
		if len(rest) == 0 || rest[0] != '\n' {
			return nil, fmt.Errorf("%w: %q: missing line terminator", ErrMalformed, path)
		}
		records = append(records, Record{Path: path, Node: id, Flag: flag})
		data = rest[1:]
	}
	return records, nil
}

func decodeV2(data []byte) ([]Record, error) {
	var records []Record
	prev := ""
	for len(data) > 0 {
		stem := int(data[0])
		if stem > len(prev) {
			return nil, fmt.Errorf("%w: stem %d longer than previous path", ErrMalformed, stem)
		}
		data = data[1:]
		nul := bytes.IndexByte(data, 0)
		if nul < 0 {
			return nil, fmt.Errorf("%w: missing path terminator", ErrMalformed)
		}
		path := prev[:stem] + string(data[:nul])
		rest := data[nul+1:]

		var flag string
		if len(rest) > 0 && rest[0] != '\n' {
			flag = string(rest[:1])
			rest = rest[1:]
		}
		if len(rest) < node.Size+2 || rest[0] != '\n' || rest[node.Size+1] != '\n' {
			return nil, fmt.Errorf("%w: %q: bad node record", ErrMalformed, path)
		}
		var id node.ID
		copy(id[:], rest[1:node.Size+1])

		records = append(records, Record{Path: path, Node: id, Flag: flag})
		prev = path
		data = rest[node.Size+2:]
	}
	return records, nil
}
