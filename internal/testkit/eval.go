// Package testkit provides an evaluating ir.Builder over simulated
// memory. Values carry their bit patterns, allocas are byte buffers,
// loads and stores move bytes per the data layout. That is enough to
// check encode/decode round trips bit for bit without a code generator.
package testkit

import (
	"fmt"
	"math"

	"cabi/internal/ir"
)

type buffer struct {
	id   int
	data []byte
}

type simValue struct {
	typ   *ir.Type
	bytes []byte  // scalar or aggregate memory image, little-endian
	buf   *buffer // pointers only
	off   int64   // pointers only
}

func (v *simValue) Type() *ir.Type { return v.typ }

// EvalBuilder implements ir.Builder by evaluating every instruction
// immediately against simulated memory.
type EvalBuilder struct {
	dl      ir.DataLayout
	tb      *ir.TypeBuilder
	buffers []*buffer
}

// NewEvalBuilder builds an evaluator for the given data layout.
func NewEvalBuilder(dl ir.DataLayout) *EvalBuilder {
	return &EvalBuilder{dl: dl, tb: ir.NewTypeBuilder()}
}

// Current implements ir.Builder.
func (b *EvalBuilder) Current() ir.InstBuilder { return b }

// Entry implements ir.Builder.
func (b *EvalBuilder) Entry() ir.InstBuilder { return b }

// valueSize is the number of bytes a value of t carries.
func (b *EvalBuilder) valueSize(t *ir.Type) int64 {
	return b.dl.StoreSize(t)
}

// ConstBytes creates a value of t from its little-endian bit pattern.
func (b *EvalBuilder) ConstBytes(t *ir.Type, data []byte) ir.Value {
	if int64(len(data)) != b.valueSize(t) {
		panic(fmt.Errorf("%d bytes for %s (want %d)", len(data), t, b.valueSize(t)))
	}
	return &simValue{typ: t, bytes: append([]byte(nil), data...)}
}

// ConstInt creates an integer value of t.
func (b *EvalBuilder) ConstInt(t *ir.Type, v uint64) ir.Value {
	data := make([]byte, b.valueSize(t))
	for i := 0; i < len(data) && i < 8; i++ {
		data[i] = byte(v >> (8 * i))
	}
	return b.ConstBytes(t, data)
}

// ConstFloat64 creates a double value.
func (b *EvalBuilder) ConstFloat64(v float64) ir.Value {
	return b.ConstInt(b.tb.Int(64), math.Float64bits(v)).(*simValue).retype(b.tb.Double())
}

func (v *simValue) retype(t *ir.Type) *simValue {
	return &simValue{typ: t, bytes: v.bytes, buf: v.buf, off: v.off}
}

// Bytes returns the bit pattern of a value.
func Bytes(v ir.Value) []byte {
	return append([]byte(nil), v.(*simValue).bytes...)
}

func (b *EvalBuilder) pointerTo(t *ir.Type, buf *buffer, off int64) *simValue {
	return &simValue{typ: b.tb.Pointer(t), buf: buf, off: off}
}

func asPointer(v ir.Value) *simValue {
	sv := v.(*simValue)
	if sv.buf == nil {
		panic(fmt.Errorf("value of %s is not a simulated pointer", sv.typ))
	}
	return sv
}

// Alloca implements ir.InstBuilder.
func (b *EvalBuilder) Alloca(t *ir.Type, align int, name string) ir.Value {
	buf := &buffer{id: len(b.buffers), data: make([]byte, b.dl.AllocSize(t))}
	b.buffers = append(b.buffers, buf)
	return b.pointerTo(t, buf, 0)
}

// Load implements ir.InstBuilder.
func (b *EvalBuilder) Load(t *ir.Type, ptr ir.Value, align int, name string) ir.Value {
	p := asPointer(ptr)
	size := b.valueSize(t)
	if p.off+size > int64(len(p.buf.data)) {
		panic(fmt.Errorf("load of %s overruns buffer (off %d, size %d, len %d)",
			t, p.off, size, len(p.buf.data)))
	}
	return b.ConstBytes(t, p.buf.data[p.off:p.off+size])
}

// Store implements ir.InstBuilder.
func (b *EvalBuilder) Store(v, ptr ir.Value, align int) {
	p := asPointer(ptr)
	sv := v.(*simValue)
	data := sv.bytes
	if sv.buf != nil {
		data = b.encodePointer(sv)
	}
	if p.off+int64(len(data)) > int64(len(p.buf.data)) {
		panic(fmt.Errorf("store of %s overruns buffer", sv.typ))
	}
	copy(p.buf.data[p.off:], data)
}

// encodePointer flattens a pointer value into ptr-sized bytes so it
// can live in memory and come back via a load + inttoptr.
func (b *EvalBuilder) encodePointer(v *simValue) []byte {
	addr := uint64(v.buf.id+1)<<24 | uint64(v.off)
	data := make([]byte, b.dl.PtrBytes)
	for i := range data {
		data[i] = byte(addr >> (8 * i))
	}
	return data
}

func (b *EvalBuilder) decodePointer(t *ir.Type, data []byte) *simValue {
	var addr uint64
	for i := 0; i < len(data) && i < 8; i++ {
		addr |= uint64(data[i]) << (8 * i)
	}
	id := int(addr>>24) - 1
	if id < 0 || id >= len(b.buffers) {
		panic(fmt.Errorf("dangling simulated pointer %#x", addr))
	}
	return &simValue{typ: t, buf: b.buffers[id], off: int64(addr & 0xffffff)}
}

// BitCast implements ir.InstBuilder.
func (b *EvalBuilder) BitCast(v ir.Value, t *ir.Type, name string) ir.Value {
	sv := v.(*simValue)
	if sv.buf != nil {
		if !t.IsPointer() {
			panic(fmt.Errorf("bitcast of pointer to %s", t))
		}
		return &simValue{typ: t, buf: sv.buf, off: sv.off}
	}
	if b.valueSize(t) != int64(len(sv.bytes)) {
		panic(fmt.Errorf("bitcast %s to %s changes size", sv.typ, t))
	}
	return b.ConstBytes(t, sv.bytes)
}

// PtrToInt implements ir.InstBuilder.
func (b *EvalBuilder) PtrToInt(v ir.Value, t *ir.Type, name string) ir.Value {
	p := asPointer(v)
	data := b.encodePointer(p)
	return b.ConstBytes(t, resizeUint(data, b.valueSize(t)))
}

// IntToPtr implements ir.InstBuilder.
func (b *EvalBuilder) IntToPtr(v ir.Value, t *ir.Type, name string) ir.Value {
	sv := v.(*simValue)
	return b.decodePointer(t, sv.bytes)
}

// IntCast implements ir.InstBuilder.
func (b *EvalBuilder) IntCast(v ir.Value, t *ir.Type, signed bool, name string) ir.Value {
	sv := v.(*simValue)
	size := b.valueSize(t)
	data := resizeInt(sv.bytes, size, signed)
	maskTop(data, t.IntBits())
	return b.ConstBytes(t, data)
}

// SExt implements ir.InstBuilder.
func (b *EvalBuilder) SExt(v ir.Value, t *ir.Type, name string) ir.Value {
	return b.IntCast(v, t, true, name)
}

// ZExt implements ir.InstBuilder.
func (b *EvalBuilder) ZExt(v ir.Value, t *ir.Type, name string) ir.Value {
	return b.IntCast(v, t, false, name)
}

// FPExt implements ir.InstBuilder.
func (b *EvalBuilder) FPExt(v ir.Value, t *ir.Type, name string) ir.Value {
	sv := v.(*simValue)
	if sv.typ.Kind() == ir.KindFloat && t.Kind() == ir.KindDouble {
		var bits uint32
		for i := 0; i < 4; i++ {
			bits |= uint32(sv.bytes[i]) << (8 * i)
		}
		wide := math.Float64bits(float64(math.Float32frombits(bits)))
		data := make([]byte, 8)
		for i := range data {
			data[i] = byte(wide >> (8 * i))
		}
		return b.ConstBytes(t, data)
	}
	panic(fmt.Errorf("fpext %s to %s", sv.typ, t))
}

// Shl implements ir.InstBuilder.
func (b *EvalBuilder) Shl(v ir.Value, bits int, name string) ir.Value {
	return b.shift(v, bits, false)
}

// LShr implements ir.InstBuilder.
func (b *EvalBuilder) LShr(v ir.Value, bits int, name string) ir.Value {
	return b.shift(v, bits, true)
}

func (b *EvalBuilder) shift(v ir.Value, bits int, right bool) ir.Value {
	sv := v.(*simValue)
	if len(sv.bytes) > 8 {
		panic(fmt.Errorf("shift of %s unsupported", sv.typ))
	}
	var u uint64
	for i, bb := range sv.bytes {
		u |= uint64(bb) << (8 * i)
	}
	if right {
		u >>= uint(bits)
	} else {
		u <<= uint(bits)
	}
	data := make([]byte, len(sv.bytes))
	for i := range data {
		data[i] = byte(u >> (8 * i))
	}
	return b.ConstBytes(sv.typ, data)
}

// ConstGEP2 implements ir.InstBuilder: &ptr[0].idx1 through aggregate
// type t.
func (b *EvalBuilder) ConstGEP2(t *ir.Type, ptr ir.Value, idx1 int, name string) ir.Value {
	p := asPointer(ptr)
	switch t.Kind() {
	case ir.KindStruct:
		offsets := b.dl.StructOffsets(t)
		return b.pointerTo(t.Fields()[idx1], p.buf, p.off+offsets[idx1])
	case ir.KindArray, ir.KindVector:
		elem := t.Elem()
		return b.pointerTo(elem, p.buf, p.off+int64(idx1)*b.dl.AllocSize(elem))
	default:
		panic(fmt.Errorf("gep through %s", t))
	}
}

// ConstGEP1 implements ir.InstBuilder.
func (b *EvalBuilder) ConstGEP1(t *ir.Type, ptr ir.Value, idx int, name string) ir.Value {
	p := asPointer(ptr)
	return b.pointerTo(t, p.buf, p.off+int64(idx)*b.dl.AllocSize(t))
}

// ExtractValue implements ir.InstBuilder.
func (b *EvalBuilder) ExtractValue(agg ir.Value, index int, name string) ir.Value {
	sv := agg.(*simValue)
	t := sv.typ
	switch t.Kind() {
	case ir.KindStruct:
		offsets := b.dl.StructOffsets(t)
		fieldType := t.Fields()[index]
		start := offsets[index]
		return b.ConstBytes(fieldType, sv.bytes[start:start+b.valueSize(fieldType)])
	case ir.KindArray:
		elem := t.Elem()
		start := int64(index) * b.dl.AllocSize(elem)
		return b.ConstBytes(elem, sv.bytes[start:start+b.valueSize(elem)])
	default:
		panic(fmt.Errorf("extractvalue from %s", t))
	}
}

// MemCpy implements ir.InstBuilder.
func (b *EvalBuilder) MemCpy(dst, src ir.Value, size int64, align int) {
	d := asPointer(dst)
	s := asPointer(src)
	copy(d.buf.data[d.off:d.off+size], s.buf.data[s.off:s.off+size])
}

// Undef implements ir.InstBuilder: a deterministic all-zero value.
func (b *EvalBuilder) Undef(t *ir.Type) ir.Value {
	if t.IsVoid() {
		return &simValue{typ: t}
	}
	return b.ConstBytes(t, make([]byte, b.valueSize(t)))
}

// Ret implements ir.InstBuilder.
func (b *EvalBuilder) Ret(v ir.Value) ir.Value { return v }

// RetVoid implements ir.InstBuilder.
func (b *EvalBuilder) RetVoid() ir.Value {
	return &simValue{typ: b.tb.Void()}
}

func resizeUint(data []byte, size int64) []byte {
	out := make([]byte, size)
	copy(out, data)
	return out
}

func resizeInt(data []byte, size int64, signed bool) []byte {
	out := make([]byte, size)
	n := copy(out, data)
	if signed && n > 0 && n < len(out) && out[n-1]&0x80 != 0 {
		for i := n; i < len(out); i++ {
			out[i] = 0xff
		}
	}
	return out
}

// maskTop clears the bits beyond the integer width in the last byte.
func maskTop(data []byte, bits int) {
	if rem := bits % 8; rem != 0 && len(data) > 0 {
		data[len(data)-1] &= byte(1<<rem) - 1
	}
}
