package container

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

const (
	magic         = 0x43545348 // "HSTC"
	formatVersion = 1

	headerSize = 24
	footerSize = 16
	indexHead  = 8

	maxNameLen  = math.MaxUint16
	maxTypeNest = 32
)

const (
	nodeGroup   = 1
	nodeDataset = 2
)

// payloadBuffer is an append/consume buffer for the index block. Errors are
// sticky: after the first failure every call is a no-op.
type payloadBuffer struct {
	buf []byte
	pos int
	err error
}

func newPayloadBuffer(b []byte) *payloadBuffer {
	return &payloadBuffer{buf: b}
}

func (p *payloadBuffer) writeUint8(v uint8) {
	if p.err != nil {
		return
	}
	p.buf = append(p.buf, v)
}

func (p *payloadBuffer) writeUint16(v uint16) {
	if p.err != nil {
		return
	}
	p.buf = binary.LittleEndian.AppendUint16(p.buf, v)
}

func (p *payloadBuffer) writeUint32(v uint32) {
	if p.err != nil {
		return
	}
	p.buf = binary.LittleEndian.AppendUint32(p.buf, v)
}

func (p *payloadBuffer) writeUint64(v uint64) {
	if p.err != nil {
		return
	}
	p.buf = binary.LittleEndian.AppendUint64(p.buf, v)
}

// writeName writes a u16-length prefixed string.
func (p *payloadBuffer) writeName(s string) {
	if p.err != nil {
		return
	}
	if len(s) > maxNameLen {
		p.err = fmt.Errorf("%w: name too long: %d", ErrInvalidName, len(s))
		return
	}
	p.writeUint16(uint16(len(s)))
	p.buf = append(p.buf, s...)
}

// writeText writes a u32-length prefixed string.
func (p *payloadBuffer) writeText(s string) {
	if p.err != nil {
		return
	}
	if uint64(len(s)) > math.MaxUint32 {
		p.err = fmt.Errorf("attribute value too long: %d", len(s))
		return
	}
	p.writeUint32(uint32(len(s)))
	p.buf = append(p.buf, s...)
}

func (p *payloadBuffer) need(n int) bool {
	if p.err != nil {
		return false
	}
	if n < 0 || p.pos+n > len(p.buf) {
		p.err = io.ErrUnexpectedEOF
		return false
	}
	return true
}

func (p *payloadBuffer) readUint8() uint8 {
	if !p.need(1) {
		return 0
	}
	v := p.buf[p.pos]
	p.pos++
	return v
}

func (p *payloadBuffer) readUint16() uint16 {
	if !p.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(p.buf[p.pos:])
	p.pos += 2
	return v
}

func (p *payloadBuffer) readUint32() uint32 {
	if !p.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(p.buf[p.pos:])
	p.pos += 4
	return v
}

func (p *payloadBuffer) readUint64() uint64 {
	if !p.need(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(p.buf[p.pos:])
	p.pos += 8
	return v
}

func (p *payloadBuffer) readName() string {
	n := int(p.readUint16())
	if !p.need(n) {
		return ""
	}
	s := string(p.buf[p.pos : p.pos+n])
	p.pos += n
	return s
}

func (p *payloadBuffer) readText() string {
	n := p.readUint32()
	if uint64(n) > uint64(len(p.buf)) || !p.need(int(n)) {
		if p.err == nil {
			p.err = io.ErrUnexpectedEOF
		}
		return ""
	}
	s := string(p.buf[p.pos : p.pos+int(n)])
	p.pos += int(n)
	return s
}

func (p *payloadBuffer) fail(format string, args ...any) {
	if p.err == nil {
		p.err = fmt.Errorf(format, args...)
	}
}

func (p *payloadBuffer) writeDType(d DType) {
	p.writeUint8(uint8(d.kind))
	switch d.kind {
	case KindString:
		p.writeUint32(uint32(d.size))
	case KindArray:
		p.writeUint8(uint8(len(d.dims)))
		for _, dim := range d.dims {
			p.writeUint32(uint32(dim))
		}
		p.writeDType(*d.elem)
	case KindCompound:
		p.writeUint32(uint32(d.size))
		p.writeUint16(uint16(len(d.fields)))
		for _, f := range d.fields {
			p.writeName(f.Name)
			p.writeUint32(uint32(f.Offset))
			p.writeDType(f.Type)
		}
	}
}

func (p *payloadBuffer) readDType(depth int) DType {
	if depth > maxTypeNest {
		p.fail("%w: type nesting too deep", ErrInvalidType)
		return DType{}
	}
	kind := Kind(p.readUint8())
	switch kind {
	case KindString:
		d, err := FixedString(int(p.readUint32()))
		if err != nil {
			p.fail("%w", err)
		}
		return d
	case KindArray:
		dims := make([]int, p.readUint8())
		for i := range dims {
			dims[i] = int(p.readUint32())
		}
		elem := p.readDType(depth + 1)
		if p.err != nil {
			return DType{}
		}
		d, err := ArrayOf(elem, dims...)
		if err != nil {
			p.fail("%w", err)
		}
		return d
	case KindCompound:
		size := int(p.readUint32())
		fields := make([]Field, p.readUint16())
		for i := range fields {
			fields[i].Name = p.readName()
			fields[i].Offset = int(p.readUint32())
			fields[i].Type = p.readDType(depth + 1)
		}
		if p.err != nil {
			return DType{}
		}
		d, err := Compound(size, fields...)
		if err != nil {
			p.fail("%w", err)
		}
		return d
	default:
		d, err := ScalarOf(kind)
		if err != nil {
			p.fail("%w", err)
		}
		return d
	}
}

func (p *payloadBuffer) writeAttrs(attrs attrList) {
	p.writeUint32(uint32(len(attrs)))
	for _, a := range attrs {
		p.writeName(a.Name)
		p.writeUint8(uint8(a.Value.kind))
		if a.Value.kind == ValueString {
			p.writeText(a.Value.s)
		} else if a.Value.kind == ValueBool {
			p.writeUint8(uint8(a.Value.bits))
		} else {
			p.writeUint64(a.Value.bits)
		}
	}
}

func (p *payloadBuffer) readAttrs() attrList {
	n := p.readUint32()
	if p.err != nil || uint64(n) > uint64(len(p.buf)) {
		p.fail("%w: attribute count %d", ErrCorrupt, n)
		return nil
	}
	attrs := make(attrList, 0, n)
	for i := uint32(0); i < n && p.err == nil; i++ {
		a := Attr{Name: p.readName()}
		a.Value.kind = ValueKind(p.readUint8())
		switch a.Value.kind {
		case ValueString:
			a.Value.s = p.readText()
		case ValueBool:
			a.Value.bits = uint64(p.readUint8())
		case ValueInt, ValueUint, ValueFloat:
			a.Value.bits = p.readUint64()
		default:
			p.fail("%w: attribute %q has unknown kind %d", ErrCorrupt, a.Name, a.Value.kind)
		}
		attrs = append(attrs, a)
	}
	return attrs
}
