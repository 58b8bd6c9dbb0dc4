package types

import (
	"fmt"
	"strings"
)

// TypeString renders a handle in the manifest syntax accepted by the
// type-expression parser ("i32", "struct{i64,i64}", "[4 x float]").
func (in *Interner) TypeString(id TypeID) string {
	tt, ok := in.Lookup(id)
	if !ok {
		return fmt.Sprintf("type#%d", id)
	}
	switch tt.Kind {
	case KindVoid:
		return "void"
	case KindBool:
		return "i1"
	case KindInt:
		return fmt.Sprintf("i%d", tt.Width)
	case KindUint:
		return fmt.Sprintf("u%d", tt.Width)
	case KindFloat:
		switch tt.Width {
		case Width16:
			return "half"
		case Width32:
			return "float"
		case Width64:
			return "double"
		case Width80:
			return "x86_fp80"
		case Width128:
			return "fp128"
		}
		return fmt.Sprintf("f%d", tt.Width)
	case KindPointer:
		if tt.AddrSpace != 0 {
			return fmt.Sprintf("ptr(%d)", tt.AddrSpace)
		}
		return "ptr"
	case KindArray:
		return fmt.Sprintf("[%d x %s]", tt.Count, in.TypeString(tt.Elem))
	case KindVector:
		return fmt.Sprintf("<%d x %s>", tt.Count, in.TypeString(tt.Elem))
	case KindComplex:
		return fmt.Sprintf("complex %s", in.TypeString(tt.Elem))
	case KindStruct:
		info, _ := in.StructInfo(id)
		s := in.recordString("struct", info.Fields)
		if info.FlexibleArray {
			sep := ","
			if len(info.Fields) == 0 {
				sep = ""
			}
			s = s[:len(s)-1] + sep + "...}"
		}
		if info.Packed {
			s = "packed " + s
		}
		return s
	case KindUnion:
		info, _ := in.UnionInfo(id)
		return in.recordString("union", info.Fields)
	default:
		return tt.Kind.String()
	}
}

func (in *Interner) recordString(prefix string, fields []Field) string {
	var sb strings.Builder
	sb.WriteString(prefix)
	sb.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(in.TypeString(f.Type))
		if f.BitField {
			fmt.Fprintf(&sb, ":%d", f.BitWidth)
		}
	}
	sb.WriteByte('}')
	return sb.String()
}
