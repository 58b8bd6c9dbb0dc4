package ir

// Value is an opaque IR value produced by the surrounding driver's
// builder. The lowering only ever inspects its type.
type Value interface {
	Type() *Type
}

// InstBuilder emits instructions at one insertion point. It is the
// subset of a full IR builder the ABI lowering needs; the driver owns
// the real builder and the lowering never retains it past one call.
type InstBuilder interface {
	// Alloca reserves stack memory for one value of t and returns a
	// pointer to it. align of 0 uses the type's natural alignment.
	Alloca(t *Type, align int, name string) Value

	// Load reads a value of t from ptr. align of 0 uses natural alignment.
	Load(t *Type, ptr Value, align int, name string) Value

	// Store writes v through ptr. align of 0 uses natural alignment.
	Store(v, ptr Value, align int)

	// BitCast reinterprets v as t (pointer casts included).
	BitCast(v Value, t *Type, name string) Value

	// PtrToInt converts a pointer to an integer of type t.
	PtrToInt(v Value, t *Type, name string) Value

	// IntToPtr converts an integer to a pointer of type t.
	IntToPtr(v Value, t *Type, name string) Value

	// IntCast truncates or extends an integer value to t.
	IntCast(v Value, t *Type, signed bool, name string) Value

	// SExt sign-extends an integer value to t.
	SExt(v Value, t *Type, name string) Value

	// ZExt zero-extends an integer value to t.
	ZExt(v Value, t *Type, name string) Value

	// FPExt extends a floating-point value to t.
	FPExt(v Value, t *Type, name string) Value

	// Shl/LShr shift an integer value by a constant amount.
	Shl(v Value, bits int, name string) Value
	LShr(v Value, bits int, name string) Value

	// ConstGEP2 indexes through a pointer to t with constant indices
	// (0, idx1): struct member or array element access.
	ConstGEP2(t *Type, ptr Value, idx1 int, name string) Value

	// ConstGEP1 offsets a pointer by idx elements of t.
	ConstGEP1(t *Type, ptr Value, idx int, name string) Value

	// ExtractValue pulls a member out of a first-class aggregate.
	ExtractValue(agg Value, index int, name string) Value

	// MemCpy copies size bytes from src to dst.
	MemCpy(dst, src Value, size int64, align int)

	// Undef returns an undefined value of t.
	Undef(t *Type) Value

	// Ret emits a return of v; RetVoid a void return.
	Ret(v Value) Value
	RetVoid() Value
}

// Builder is the driver-supplied instruction builder. Current emits at
// the current insertion point; Entry emits at the entry block of the
// enclosing function, where temporaries must live.
type Builder interface {
	Current() InstBuilder
	Entry() InstBuilder
}
