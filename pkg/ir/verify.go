package ir

import (
	"errors"
	"fmt"
)

// VerifyError lists every structural problem found in a module.
type VerifyError struct {
	Issues []string
}

func (e *VerifyError) Error() string {
	if len(e.Issues) == 1 {
		return "ir verify: " + e.Issues[0]
	}
	msg := fmt.Sprintf("ir verify: %d issues", len(e.Issues))
	for _, issue := range e.Issues {
		msg += "\n- " + issue
	}
	return msg
}

// Verify checks that every defined function is well formed: each block ends in
// exactly one terminator, and operands belong to the function that uses them.
func Verify(m *Module) error {
	if m == nil {
		return errors.New("ir verify: nil module")
	}
	var issues []string
	for _, fn := range m.functions {
		issues = append(issues, verifyFunction(m, fn)...)
	}
	if len(issues) > 0 {
		return &VerifyError{Issues: issues}
	}
	return nil
}

func verifyFunction(m *Module, fn *Function) []string {
	var issues []string
	if len(fn.Blocks) == 0 {
		return []string{fmt.Sprintf("function %s has no body", fn.Name())}
	}
	for _, block := range fn.Blocks {
		if block.Terminator() == nil {
			issues = append(issues, fmt.Sprintf("%s/%s: missing terminator", fn.Name(), block.Name))
		}
		for idx, instr := range block.Instrs {
			if instr.IsTerminator() && idx != len(block.Instrs)-1 {
				issues = append(issues, fmt.Sprintf("%s/%s: terminator before end of block", fn.Name(), block.Name))
			}
			for _, op := range instr.Operands() {
				if msg := verifyOperand(m, fn, op); msg != "" {
					issues = append(issues, fmt.Sprintf("%s/%s: %s", fn.Name(), block.Name, msg))
				}
			}
		}
	}
	return issues
}

func verifyOperand(m *Module, fn *Function, op Value) string {
	switch v := op.(type) {
	case nil:
		return "nil operand"
	case Constant:
		return ""
	case *Param:
		if v.parent != fn {
			return fmt.Sprintf("parameter %s belongs to %s", v.Name(), v.parent.Name())
		}
	case *Global:
		if m.globalIndex[v.Name()] != v {
			return fmt.Sprintf("global %s is not defined in module %s", v.Name(), m.Name)
		}
	case *Function:
		if m.functionIndex[v.Name()] != v {
			return fmt.Sprintf("function %s is not defined in module %s", v.Name(), m.Name)
		}
	case Instruction:
		if v.Block() == nil || v.Block().parent != fn {
			return fmt.Sprintf("operand %s is defined outside %s", describeOperand(v), fn.Name())
		}
	}
	return ""
}

func describeOperand(v Value) string {
	if v.Name() != "" {
		return "%" + v.Name()
	}
	return fmt.Sprintf("<%T>", v)
}
