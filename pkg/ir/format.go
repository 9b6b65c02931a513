package ir

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Format returns a readable, LLVM-flavoured text representation of the module.
func Format(m *Module) string {
	if m == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "; module %s\n", m.Name)
	for _, g := range m.globals {
		fmt.Fprintf(&b, "@%s = global %s %s\n", g.Name(), g.Elem, zeroLiteral(g.Elem))
	}
	for _, fn := range m.functions {
		b.WriteString("\n")
		writeFunction(&b, fn)
	}
	return b.String()
}

// WriteModule writes the formatted module to w.
func WriteModule(w io.Writer, m *Module) error {
	_, err := io.WriteString(w, Format(m))
	return err
}

type valueNamer struct {
	names map[Value]string
	taken map[string]bool
	next  int
}

func newValueNamer() *valueNamer {
	return &valueNamer{names: make(map[Value]string), taken: make(map[string]bool)}
}

func (n *valueNamer) assign(v Value) {
	if _, ok := n.names[v]; ok {
		return
	}
	base := v.Name()
	if base == "" {
		for n.taken[strconv.Itoa(n.next)] {
			n.next++
		}
		base = strconv.Itoa(n.next)
		n.next++
	}
	name := base
	for suffix := 1; n.taken[name]; suffix++ {
		name = base + strconv.Itoa(suffix)
	}
	n.taken[name] = true
	n.names[v] = name
}

func (n *valueNamer) ref(v Value) string {
	switch val := v.(type) {
	case nil:
		return "<nil>"
	case *ConstInt:
		return val.String()
	case *ConstFloat:
		return val.String()
	case *Global:
		return "@" + val.Name()
	case *Function:
		return "@" + val.Name()
	}
	if name, ok := n.names[v]; ok {
		return "%" + name
	}
	return "%<unnamed>"
}

func (n *valueNamer) typedRef(v Value) string {
	if v == nil {
		return "<nil>"
	}
	return v.Type().String() + " " + n.ref(v)
}

func writeFunction(b *strings.Builder, fn *Function) {
	namer := newValueNamer()
	for _, p := range fn.Params {
		namer.assign(p)
	}
	for _, block := range fn.Blocks {
		for _, instr := range block.Instrs {
			if instr.Type().Kind() != KindVoid {
				namer.assign(instr)
			}
		}
	}

	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = namer.typedRef(p)
	}
	keyword := "define"
	if len(fn.Blocks) == 0 {
		keyword = "declare"
	}
	fmt.Fprintf(b, "%s %s @%s(%s)", keyword, fn.Sig.Return, fn.Name(), strings.Join(params, ", "))
	if len(fn.Blocks) == 0 {
		b.WriteString("\n")
		return
	}
	b.WriteString(" {\n")
	for _, block := range fn.Blocks {
		fmt.Fprintf(b, "%s:\n", block.Name)
		for _, instr := range block.Instrs {
			b.WriteString("  ")
			b.WriteString(formatInstruction(namer, instr))
			b.WriteString("\n")
		}
	}
	b.WriteString("}\n")
}

func formatInstruction(n *valueNamer, instr Instruction) string {
	switch in := instr.(type) {
	case *Alloca:
		return fmt.Sprintf("%s = alloca %s", n.ref(in), in.Elem)
	case *Load:
		return fmt.Sprintf("%s = load %s, %s", n.ref(in), in.Type(), n.typedRef(in.Ptr))
	case *Store:
		return fmt.Sprintf("store %s, %s", n.typedRef(in.Val), n.typedRef(in.Ptr))
	case *BinOp:
		return fmt.Sprintf("%s = %s %s %s, %s", n.ref(in), in.Op, in.Type(), n.ref(in.X), n.ref(in.Y))
	case *Call:
		args := make([]string, len(in.Args))
		for i, arg := range in.Args {
			args[i] = n.typedRef(arg)
		}
		call := fmt.Sprintf("call %s @%s(%s)", in.Type(), in.Callee.Name(), strings.Join(args, ", "))
		if in.Type().Kind() == KindVoid {
			return call
		}
		return n.ref(in) + " = " + call
	case *Ret:
		if in.Val == nil {
			return "ret void"
		}
		return "ret " + n.typedRef(in.Val)
	default:
		return fmt.Sprintf("; unknown instruction %T", instr)
	}
}

func zeroLiteral(t Type) string {
	if t.Kind() == KindDouble {
		return NewConstFloat(0).String()
	}
	return "0"
}
