package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mna/cirstage/lang/diag"
	"github.com/mna/cirstage/lang/ir"
)

// printStmt renders one statement's C text, grounded on CirStmt.c's
// CirStmt_print: a per-kind switch followed by a uniform trailing
// `; /* sidN */` (kept even for a Label, which C requires a following
// statement for anyway, and which doubles as a breadcrumb back to the
// handle a diagnostic or the JIT back end would report).
func (r *Renderer) printStmt(buf *bytes.Buffer, h ir.StmtID, s *ir.Stmt) {
	switch s.Kind {
	case ir.SNop:
		buf.WriteString("/* nop */")
	case ir.SUnOp:
		buf.WriteString(r.varRefName(s.Dst))
		buf.WriteString(" = ")
		buf.WriteString(unopToStr(s.UOp))
		r.printValue(buf, s.A)
	case ir.SBinOp:
		buf.WriteString(r.varRefName(s.Dst))
		buf.WriteString(" = ")
		r.printValue(buf, s.A)
		buf.WriteString(binopToStr(s.BOp))
		r.printValue(buf, s.B)
	case ir.SCall:
		if s.HasDst {
			buf.WriteString(r.varRefName(s.Dst))
			buf.WriteString(" = ")
		}
		r.printValue(buf, s.Target)
		buf.WriteString("(")
		for i, a := range s.Args {
			if i > 0 {
				buf.WriteString(", ")
			}
			r.printValue(buf, a)
		}
		buf.WriteString(")")
	case ir.SReturn:
		buf.WriteString("return")
		if s.HasValue {
			buf.WriteString(" ")
			r.printValue(buf, s.Value)
		}
	case ir.SCmp:
		buf.WriteString("if (")
		r.printValue(buf, s.A)
		buf.WriteString(condopToStr(s.COp))
		r.printValue(buf, s.B)
		buf.WriteString(") goto ")
		r.printJumpTarget(buf, s.JumpTarget)
	case ir.SGoto:
		buf.WriteString("goto ")
		r.printJumpTarget(buf, s.JumpTarget)
	case ir.SLabel:
		buf.WriteString(s.Name)
		buf.WriteString(":")
	case ir.SGotoLabel:
		buf.WriteString("goto ")
		buf.WriteString(s.Name)
	case ir.SUser:
		fmt.Fprintf(buf, "/* staging user op %d */", s.UID)
	default:
		diag.Bug("render: printStmt: unhandled stmt kind %v", s.Kind)
	}

	fmt.Fprintf(buf, "; /* sid%d */\n", h)
}

func (r *Renderer) printJumpTarget(buf *bytes.Buffer, target ir.StmtID) {
	if target == ir.None {
		diag.Bug("render: unpatched jump target")
	}
	fmt.Fprintf(buf, "sid%d", target)
}

// printValue renders one Value as a C expression, grounded on
// CirValue_print/CirValue.c.
func (r *Renderer) printValue(buf *bytes.Buffer, v ir.Value) {
	switch v.Kind {
	case ir.VInt:
		r.printIntCast(buf, v.Type)
		r.printIntLiteral(buf, v)
	case ir.VStr:
		if v.Type != ir.None {
			r.printIntCast(buf, v.Type)
		}
		buf.WriteString(cQuote(v.Str))
	case ir.VVar:
		r.printVarValue(buf, v)
	case ir.VMem:
		r.printMemValue(buf, v)
	case ir.VUser:
		fmt.Fprintf(buf, "<USER %d>", v.User)
	case ir.VType:
		buf.WriteString("__typeval(")
		r.printType(buf, v.TypeVal, "", nil)
		buf.WriteString(")")
	case ir.VBuiltin:
		fmt.Fprintf(buf, "__builtin%d", int(v.Builtin))
	default:
		diag.Bug("render: printValue: unhandled value kind %v", v.Kind)
	}
}

func (r *Renderer) printIntCast(buf *bytes.Buffer, t ir.TypeID) {
	buf.WriteString("(")
	r.printType(buf, t, "", nil)
	buf.WriteString(")")
}

// printIntLiteral prints v's bit pattern signed or unsigned according to
// its type's int kind, since a VInt's Int field is a bit pattern that may
// be reinterpreting a pointer or unsigned type (CirValue_print's "note:
// type could be a pointer" comment).
func (r *Renderer) printIntLiteral(buf *bytes.Buffer, v ir.Value) {
	unrolled := r.ctx.Unroll(v.Type)
	ty := r.ctx.Types.Get(unrolled)
	if ty.Kind == ir.KInt && ty.IKind.IsSigned() {
		fmt.Fprintf(buf, "%d", v.Int)
		return
	}
	fmt.Fprintf(buf, "%d", uint64(v.Int))
}

// printVarValue renders a VVar reference: the variable's declarator name,
// optionally preceded by a reinterpreting cast when the value's recorded
// type differs from the variable's own declared type (e.g. after an
// implicit conversion folded into the value rather than a separate
// statement). GCC's lvalue-cast extension keeps the result usable as an
// assignment target when this value is itself a statement's Dst.
func (r *Renderer) printVarValue(buf *bytes.Buffer, v ir.Value) {
	vr := r.ctx.Vars.Get(v.Var)
	if vr.Type != ir.None && !r.ctx.TypesEqual(v.Type, vr.Type) {
		r.printIntCast(buf, v.Type)
	}
	buf.WriteString(r.varRefName(v.Var))
}

// printMemValue renders a VMem reference. Unlike the original's CirValue,
// which keeps a field-name path alongside the base variable, this IR's
// Member lowering (lang/builder) discards the field name once the
// offset is computed (see ir.Value's VMem doc comment), so there is no
// `.field`/`->field` text to reconstruct: instead this renders the
// equivalent raw pointer-cast-and-offset dereference, which is exactly
// what the field access compiles down to anyway.
func (r *Renderer) printMemValue(buf *bytes.Buffer, v ir.Value) {
	buf.WriteString("(*")
	r.printPtrCast(buf, v.Type)
	if v.Base == ir.None {
		fmt.Fprintf(buf, "(void *)%d)", v.Offset)
		return
	}
	buf.WriteString("((char *)&")
	buf.WriteString(r.varRefName(v.Base))
	fmt.Fprintf(buf, " + %d))", v.Offset)
}

// printPtrCast prints a parenthesized "(T *)" (or "(T (*)())" for a
// pointer to a function/array base) cast to a pointer to base, without
// allocating a new Ptr TypeID in the shared arena purely to render one
// expression.
func (r *Renderer) printPtrCast(buf *bytes.Buffer, base ir.TypeID) {
	buf.WriteString("(")
	r.printType(buf, base, "", nil)
	ty := r.ctx.Types.Get(base)
	if ty.Kind == ir.KFun || ty.Kind == ir.KArray {
		buf.WriteString(" (*)")
	} else {
		buf.WriteString(" *")
	}
	buf.WriteString(")")
}

// unopToStr, binopToStr, and condopToStr mirror CirStmt.c's
// unopToStr/binopToStr/condopToStr tables. unopToStr adds a "*" arm for
// ir.UDeref: the original table has no such entry because its value model
// addresses every dereference through a VMem(base, offset) pair resolved
// at the point of use, but this IR also needs a general UnOp form to
// dereference an arbitrary computed pointer expression that is not just a
// known variable plus a constant offset (lang/builder/unary.go emits this
// for `*p` where p isn't itself an addressable base).
func unopToStr(op ir.UnOpKind) string {
	switch op {
	case ir.UIdentity:
		return ""
	case ir.UNeg:
		return "-"
	case ir.ULogicalNot:
		return "!"
	case ir.UBitNot:
		return "~"
	case ir.UAddr:
		return "&"
	case ir.UDeref:
		return "*"
	default:
		diag.Bug("render: unopToStr: unhandled unop %v", op)
		return ""
	}
}

func binopToStr(op ir.BinOpKind) string {
	switch op {
	case ir.BPlus:
		return " + "
	case ir.BMinus:
		return " - "
	case ir.BMul:
		return " * "
	case ir.BDiv:
		return " / "
	case ir.BMod:
		return " % "
	case ir.BBitAnd:
		return " & "
	case ir.BBitOr:
		return " | "
	case ir.BBitXor:
		return " ^ "
	case ir.BShl:
		return " << "
	case ir.BShr:
		return " >> "
	default:
		diag.Bug("render: binopToStr: unhandled binop %v", op)
		return ""
	}
}

func condopToStr(op ir.CmpOp) string {
	switch op {
	case ir.CmpLt:
		return " < "
	case ir.CmpGt:
		return " > "
	case ir.CmpLe:
		return " <= "
	case ir.CmpGe:
		return " >= "
	case ir.CmpEq:
		return " == "
	case ir.CmpNe:
		return " != "
	default:
		diag.Bug("render: condopToStr: unhandled condop %v", op)
		return ""
	}
}

// cQuote renders s as a double-quoted C string literal, escaping the
// handful of bytes that would otherwise break out of the literal or are
// not printable ASCII.
func cQuote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		b := s[i]
		switch b {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			if b < 0x20 || b >= 0x7f {
				fmt.Fprintf(&sb, `\%03o`, b)
			} else {
				sb.WriteByte(b)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
