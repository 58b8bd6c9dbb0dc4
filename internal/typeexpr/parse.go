// Package typeexpr parses the textual type syntax used by manifest
// files: "i32", "u8", "double", "ptr", "[4 x float]", "<2 x i64>",
// "complex double", "struct{i64,i64}", "union{i32,float}",
// "packed struct{i8,i32}", "struct{i32,i32:3,...}".
package typeexpr

import (
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"cabi/internal/types"
)

// Parse interns the type denoted by src into the interner.
func Parse(in *types.Interner, src string) (types.TypeID, error) {
	p := &parser{in: in, src: src}
	id, err := p.parseType()
	if err != nil {
		return types.NoTypeID, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return types.NoTypeID, p.errorf("trailing input %q", p.src[p.pos:])
	}
	return id, nil
}

type parser struct {
	in  *types.Interner
	src string
	pos int
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("type %q at offset %d: %s", p.src, p.pos, fmt.Sprintf(format, args...))
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) eat(tok string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], tok) {
		p.pos += len(tok)
		return true
	}
	return false
}

func (p *parser) word() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		ch := p.src[p.pos]
		if ch >= 'a' && ch <= 'z' || ch >= '0' && ch <= '9' || ch == '_' {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *parser) number() (uint32, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	if start == p.pos {
		return 0, p.errorf("expected number")
	}
	n, err := strconv.ParseUint(p.src[start:p.pos], 10, 32)
	if err != nil {
		return 0, p.errorf("bad number: %v", err)
	}
	return uint32(n), nil
}

func (p *parser) parseType() (types.TypeID, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return types.NoTypeID, p.errorf("expected type")
	}

	switch p.src[p.pos] {
	case '[':
		p.pos++
		count, err := p.number()
		if err != nil {
			return types.NoTypeID, err
		}
		if !p.eat("x") {
			return types.NoTypeID, p.errorf("expected 'x' in array type")
		}
		elem, err := p.parseType()
		if err != nil {
			return types.NoTypeID, err
		}
		if !p.eat("]") {
			return types.NoTypeID, p.errorf("expected ']'")
		}
		return p.in.Intern(types.MakeArray(elem, count)), nil

	case '<':
		p.pos++
		count, err := p.number()
		if err != nil {
			return types.NoTypeID, err
		}
		if !p.eat("x") {
			return types.NoTypeID, p.errorf("expected 'x' in vector type")
		}
		elem, err := p.parseType()
		if err != nil {
			return types.NoTypeID, err
		}
		if !p.eat(">") {
			return types.NoTypeID, p.errorf("expected '>'")
		}
		return p.in.Intern(types.MakeVector(elem, count)), nil
	}

	word := p.word()
	switch word {
	case "void":
		return p.in.Builtins().Void, nil
	case "ptr":
		return p.in.Builtins().Ptr, nil
	case "half":
		return p.in.Builtins().Half, nil
	case "float":
		return p.in.Builtins().Float, nil
	case "double":
		return p.in.Builtins().Double, nil
	case "x86_fp80", "longdouble":
		return p.in.Builtins().X86FP80, nil
	case "fp128":
		return p.in.Builtins().FP128, nil
	case "complex":
		elem, err := p.parseType()
		if err != nil {
			return types.NoTypeID, err
		}
		if !p.in.IsFloat(elem) {
			return types.NoTypeID, p.errorf("complex element must be floating-point")
		}
		return p.in.Intern(types.MakeComplex(elem)), nil
	case "packed":
		if p.word() != "struct" {
			return types.NoTypeID, p.errorf("expected 'struct' after 'packed'")
		}
		return p.parseRecord(true, false)
	case "struct":
		return p.parseRecord(false, false)
	case "union":
		return p.parseRecord(false, true)
	}

	if len(word) > 1 && (word[0] == 'i' || word[0] == 'u') {
		bits, err := strconv.ParseUint(word[1:], 10, 8)
		if err == nil {
			return p.intType(word[0] == 'u', bits)
		}
	}
	return types.NoTypeID, p.errorf("unknown type %q", word)
}

func (p *parser) intType(unsigned bool, bits uint64) (types.TypeID, error) {
	if bits == 1 {
		return p.in.Builtins().Bool, nil
	}
	switch bits {
	case 8, 16, 32, 64, 128:
	default:
		return types.NoTypeID, p.errorf("unsupported integer width %d", bits)
	}
	width, err := safecast.Conv[uint8](bits)
	if err != nil {
		return types.NoTypeID, p.errorf("integer width overflow: %v", err)
	}
	if unsigned {
		return p.in.Intern(types.MakeUint(types.Width(width))), nil
	}
	return p.in.Intern(types.MakeInt(types.Width(width))), nil
}

func (p *parser) parseRecord(packed, isUnion bool) (types.TypeID, error) {
	if !p.eat("{") {
		return types.NoTypeID, p.errorf("expected '{'")
	}
	var fields []types.Field
	flexible := false
	for {
		p.skipSpace()
		if p.eat("}") {
			break
		}
		if len(fields) > 0 || flexible {
			if !p.eat(",") {
				return types.NoTypeID, p.errorf("expected ',' or '}'")
			}
		}
		if p.eat("...") {
			flexible = true
			if !p.eat("}") {
				return types.NoTypeID, p.errorf("flexible array member must be last")
			}
			break
		}
		ft, err := p.parseType()
		if err != nil {
			return types.NoTypeID, err
		}
		if p.eat(":") {
			width, err := p.number()
			if err != nil {
				return types.NoTypeID, err
			}
			fields = append(fields, types.MakeBitField(ft, width))
		} else {
			fields = append(fields, types.MakeField(ft))
		}
	}
	if isUnion {
		if packed || flexible {
			return types.NoTypeID, p.errorf("unions cannot be packed or flexible")
		}
		return p.in.RegisterUnion(fields), nil
	}
	return p.in.RegisterStruct(fields, packed, flexible), nil
}
