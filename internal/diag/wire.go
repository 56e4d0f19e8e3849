package diag

import (
	"encoding/binary"
	"fmt"
	"strings"

	"ctucheck/internal/source"
)

// wire.go implements the compact diagnostic record form: a
// length-prefixed sequence of fields in a fixed order. This is an explicit,
// auditable serializer rather than an operator-overloaded stream, so the
// byte layout is visible in one place instead of scattered across <<
// overloads. Envelope formats (text/XML/SARIF) are built on top of this in
// internal/diagfmt; wire.go only knows the compact record shape.
//
// Field order: id, severity, cwe, hash, certainty, file0, primary-line,
// primary-column, short message, verbose message, remark, symbol names,
// then one block per call-stack location (line, column, resolved-file,
// original-file, info string).

// WireLocation is one resolved call-stack hop, ready for encoding.
type WireLocation struct {
	Line         uint32
	Column       uint32
	ResolvedFile string
	OriginalFile string
	Info         string
}

// WireRecord is the flattened, file-resolved form of a Diagnostic, suitable
// for the compact wire encoding. Producers build one from a Diagnostic plus
// a FileSet via NewWireRecord.
type WireRecord struct {
	ID             string
	Severity       Severity
	CWE            int
	Hash           uint64
	Certainty      Certainty
	File0          string
	PrimaryLine    uint32
	PrimaryColumn  uint32
	ShortMessage   string
	VerboseMessage string
	Remark         string
	Symbols        []string
	Locations      []WireLocation
}

// NewWireRecord resolves a Diagnostic's spans against fs and flattens it
// into the wire shape. Symbols may be nil; callers that track referenced
// identifiers (e.g. the uninit/null-pointer checks) should populate it
// before encoding so downstream sinks can highlight them.
func NewWireRecord(d Diagnostic, fs *source.FileSet, symbols []string) WireRecord {
	rec := WireRecord{
		ID:             d.Code.ID(),
		Severity:       d.Severity,
		CWE:            d.CWE(),
		Hash:           d.ContentHash(),
		Certainty:      d.Certainty,
		ShortMessage:   d.Message,
		VerboseMessage: d.VerboseMessage(),
		Symbols:        symbols,
	}
	if fs != nil {
		if f := fs.Get(d.Primary.File); f != nil {
			rec.File0 = f.FormatPath("relative", fs.BaseDir())
		}
		start, _ := fs.Resolve(d.Primary)
		rec.PrimaryLine = start.Line
		rec.PrimaryColumn = start.Col
	}
	for _, hop := range d.CallStack {
		loc := WireLocation{Info: hop.Hint}
		if fs != nil {
			if f := fs.Get(hop.Span.File); f != nil {
				loc.ResolvedFile = f.FormatPath("relative", fs.BaseDir())
				loc.OriginalFile = f.Path
			}
			start, _ := fs.Resolve(hop.Span)
			loc.Line = start.Line
			loc.Column = start.Col
		}
		rec.Locations = append(rec.Locations, loc)
	}
	return rec
}

// EscapeControl replaces control characters (byte < 0x20, plus DEL) with
// \ooo octal triples.
func EscapeControl(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c == 0x7f {
			fmt.Fprintf(&b, `\%03o`, c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// UnescapeControl reverses EscapeControl.
func UnescapeControl(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] == '\\' && i+4 <= len(s) &&
			isOctalDigit(s[i+1]) && isOctalDigit(s[i+2]) && isOctalDigit(s[i+3]) {
			v := (s[i+1]-'0')*64 + (s[i+2]-'0')*8 + (s[i+3] - '0')
			b.WriteByte(v)
			i += 4
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

func isOctalDigit(c byte) bool { return c >= '0' && c <= '7' }

// Encode writes rec in the compact length-prefixed wire form.
func Encode(rec WireRecord) []byte {
	var buf []byte
	writeStr := func(s string) {
		s = EscapeControl(s)
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s)))
		buf = append(buf, lenBuf[:]...)
		buf = append(buf, s...)
	}
	writeU32 := func(v uint32) {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], v)
		buf = append(buf, b[:]...)
	}
	writeU64 := func(v uint64) {
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], v)
		buf = append(buf, b[:]...)
	}

	writeStr(rec.ID)
	buf = append(buf, byte(rec.Severity))
	writeU32(uint32(rec.CWE))
	writeU64(rec.Hash)
	buf = append(buf, byte(rec.Certainty))
	writeStr(rec.File0)
	writeU32(rec.PrimaryLine)
	writeU32(rec.PrimaryColumn)
	writeStr(rec.ShortMessage)
	writeStr(rec.VerboseMessage)
	writeStr(rec.Remark)

	writeU32(uint32(len(rec.Symbols)))
	for _, sym := range rec.Symbols {
		writeStr(sym)
	}

	writeU32(uint32(len(rec.Locations)))
	for _, loc := range rec.Locations {
		writeU32(loc.Line)
		writeU32(loc.Column)
		writeStr(loc.ResolvedFile)
		writeStr(loc.OriginalFile)
		writeStr(loc.Info)
	}
	return buf
}

// Decode parses the compact wire form produced by Encode.
func Decode(data []byte) (WireRecord, error) {
	var rec WireRecord
	r := &wireReader{buf: data}

	rec.ID = r.readStr()
	rec.Severity = Severity(r.readByte())
	rec.CWE = int(r.readU32())
	rec.Hash = r.readU64()
	rec.Certainty = Certainty(r.readByte())
	rec.File0 = r.readStr()
	rec.PrimaryLine = r.readU32()
	rec.PrimaryColumn = r.readU32()
	rec.ShortMessage = r.readStr()
	rec.VerboseMessage = r.readStr()
	rec.Remark = r.readStr()

	symCount := r.readU32()
	if symCount > 0 {
		rec.Symbols = make([]string, symCount)
		for i := range rec.Symbols {
			rec.Symbols[i] = r.readStr()
		}
	}

	locCount := r.readU32()
	if locCount > 0 {
		rec.Locations = make([]WireLocation, locCount)
		for i := range rec.Locations {
			rec.Locations[i] = WireLocation{
				Line:         r.readU32(),
				Column:       r.readU32(),
				ResolvedFile: r.readStr(),
				OriginalFile: r.readStr(),
				Info:         r.readStr(),
			}
		}
	}

	if r.err != nil {
		return WireRecord{}, r.err
	}
	return rec, nil
}

type wireReader struct {
	buf []byte
	pos int
	err error
}

func (r *wireReader) fail() {
	if r.err == nil {
		r.err = fmt.Errorf("diag: truncated wire record at offset %d", r.pos)
	}
}

func (r *wireReader) readByte() byte {
	if r.err != nil || r.pos+1 > len(r.buf) {
		r.fail()
		return 0
	}
	b := r.buf[r.pos]
	r.pos++
	return b
}

func (r *wireReader) readU32() uint32 {
	if r.err != nil || r.pos+4 > len(r.buf) {
		r.fail()
		return 0
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos : r.pos+4])
	r.pos += 4
	return v
}

func (r *wireReader) readU64() uint64 {
	if r.err != nil || r.pos+8 > len(r.buf) {
		r.fail()
		return 0
	}
	v := binary.BigEndian.Uint64(r.buf[r.pos : r.pos+8])
	r.pos += 8
	return v
}

func (r *wireReader) readStr() string {
	n := r.readU32()
	if r.err != nil {
		return ""
	}
	if r.pos+int(n) > len(r.buf) {
		r.fail()
		return ""
	}
	s := string(r.buf[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return UnescapeControl(s)
}
