package codegen

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/NewProggie/Toco/pkg/ast"
	"github.com/NewProggie/Toco/pkg/ir"
	"github.com/NewProggie/Toco/pkg/jit"
)

func generate(t *testing.T, opts Options, stmts ...ast.Statement) (*Program, error) {
	t.Helper()
	program := NewProgram(opts)
	return program, program.Generate(ast.Blk(stmts...))
}

func mustRun(t *testing.T, opts Options, stmts ...ast.Statement) (jit.GenericValue, *Program) {
	t.Helper()
	program, err := generate(t, opts, stmts...)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	result, err := program.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v\n%s", err, ir.Format(program.Module()))
	}
	return result, program
}

func expectKind(t *testing.T, err error, kind ErrorKind) *LoweringErrors {
	t.Helper()
	var lerrs *LoweringErrors
	if !errors.As(err, &lerrs) {
		t.Fatalf("expected LoweringErrors, got %T: %v", err, err)
	}
	if len(lerrs.Errors) == 0 || lerrs.Errors[0].Kind != kind {
		t.Fatalf("expected %s, got %v", kind, lerrs.Kinds())
	}
	return lerrs
}

func TestDeclareAssignReadRoundTrip(t *testing.T) {
	result, _ := mustRun(t, Options{},
		ast.Var("int", "x", ast.Int(4)),
		ast.Expr(ast.Assign("x", ast.Int(7))),
		ast.Expr(ast.ID("x")),
	)
	if result.Int != 7 {
		t.Fatalf("x = %v, want 7", result)
	}
}

func TestArithmeticPrecision(t *testing.T) {
	cases := []struct {
		name string
		expr ast.Expression
		want jit.GenericValue
	}{
		{"int add", ast.Bin(ast.OpPlus, ast.Int(2), ast.Int(3)), jit.IntValue(5)},
		{"int sub", ast.Bin(ast.OpMinus, ast.Int(2), ast.Int(5)), jit.IntValue(-3)},
		{"int mul", ast.Bin(ast.OpMul, ast.Int(6), ast.Int(7)), jit.IntValue(42)},
		{"int div truncates", ast.Bin(ast.OpDiv, ast.Int(7), ast.Int(2)), jit.IntValue(3)},
		{"int div negative", ast.Bin(ast.OpDiv, ast.Int(-7), ast.Int(2)), jit.IntValue(-3)},
		{"double add", ast.Bin(ast.OpPlus, ast.Flt(0.5), ast.Flt(0.25)), jit.FloatValue(0.75)},
		{"double sub", ast.Bin(ast.OpMinus, ast.Flt(1), ast.Flt(2.5)), jit.FloatValue(-1.5)},
		{"double mul", ast.Bin(ast.OpMul, ast.Flt(1.5), ast.Flt(2)), jit.FloatValue(3)},
		{"double div", ast.Bin(ast.OpDiv, ast.Flt(7), ast.Flt(2)), jit.FloatValue(3.5)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, _ := mustRun(t, Options{}, ast.Expr(tc.expr))
			if !got.Type.Equal(tc.want.Type) || got.Int != tc.want.Int || got.Float != tc.want.Float {
				t.Fatalf("got %v (%s), want %v (%s)", got, got.Type, tc.want, tc.want.Type)
			}
		})
	}
}

func TestIntegerDivisionByZeroFailsAtRuntime(t *testing.T) {
	program, err := generate(t, Options{}, ast.Expr(ast.Bin(ast.OpDiv, ast.Int(1), ast.Int(0))))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	_, err = program.Run(context.Background())
	var rtErr *jit.RuntimeError
	if !errors.As(err, &rtErr) || rtErr.Kind != jit.DivisionByZero {
		t.Fatalf("expected DivisionByZero, got %v", err)
	}
}

func TestMixedOperandTypesAreRejected(t *testing.T) {
	_, err := generate(t, Options{}, ast.Expr(ast.Bin(ast.OpPlus, ast.Int(1), ast.Flt(2))))
	expectKind(t, err, TypeMismatch)
}

func TestUnsupportedOperator(t *testing.T) {
	_, err := generate(t, Options{}, ast.Expr(ast.Bin(ast.OperatorKind(9), ast.Int(1), ast.Int(2))))
	expectKind(t, err, UnsupportedOperator)
	if !errors.Is(err, ErrUnsupportedOperator) {
		t.Fatalf("expected ErrUnsupportedOperator in chain")
	}
}

func TestUndeclaredIdentifierRejectsRun(t *testing.T) {
	program, err := generate(t, Options{}, ast.Expr(ast.ID("nope")))
	expectKind(t, err, UndeclaredVariable)
	if !errors.Is(err, ErrUndeclaredVariable) {
		t.Fatalf("expected ErrUndeclaredVariable in chain, got %v", err)
	}
	if _, runErr := program.Run(context.Background()); !errors.Is(runErr, ErrUndeclaredVariable) {
		t.Fatalf("Run must refuse a failed program, got %v", runErr)
	}
}

func TestUnsupportedTypeName(t *testing.T) {
	_, err := generate(t, Options{}, ast.Var("string", "s", nil))
	lerrs := expectKind(t, err, UnsupportedType)
	if !strings.Contains(lerrs.Error(), `"string"`) {
		t.Fatalf("message should name the type: %v", lerrs)
	}
	_, err = generate(t, Options{}, ast.Var("void", "v", nil))
	expectKind(t, err, UnsupportedType)
}

func TestReturnAndExternAreUnsupported(t *testing.T) {
	_, err := generate(t, Options{}, ast.Ret(ast.Int(1)))
	expectKind(t, err, UnsupportedConstruct)
	_, err = generate(t, Options{}, ast.Extern("int", "puts", ast.Param("int", "c")))
	expectKind(t, err, UnsupportedConstruct)
}

func TestUndeclaredFunctionDoesNotLowerArguments(t *testing.T) {
	program, err := generate(t, Options{},
		ast.Var("int", "x", nil),
		ast.Expr(ast.Call("missing", ast.ID("x"))),
	)
	expectKind(t, err, UndeclaredFunction)
	for _, instr := range program.Entry().Entry().Instrs {
		if _, ok := instr.(*ir.Load); ok {
			t.Fatalf("argument of an unresolved call was lowered:\n%s", ir.Format(program.Module()))
		}
	}
}

func TestCallChecksArityAndTypes(t *testing.T) {
	add := ast.Fn("int", "add", ast.Params(ast.Param("int", "a"), ast.Param("int", "b")),
		ast.Expr(ast.Bin(ast.OpPlus, ast.ID("a"), ast.ID("b"))))
	_, err := generate(t, Options{}, add, ast.Expr(ast.Call("add", ast.Int(1))))
	expectKind(t, err, ArityMismatch)

	add = ast.Fn("int", "add", ast.Params(ast.Param("int", "a"), ast.Param("int", "b")),
		ast.Expr(ast.Bin(ast.OpPlus, ast.ID("a"), ast.ID("b"))))
	_, err = generate(t, Options{}, add, ast.Expr(ast.Call("add", ast.Int(1), ast.Flt(2))))
	expectKind(t, err, TypeMismatch)
}

func TestFunctionRedefinition(t *testing.T) {
	_, err := generate(t, Options{},
		ast.Fn("int", "f", nil, ast.Expr(ast.Int(1))),
		ast.Fn("int", "f", nil, ast.Expr(ast.Int(2))),
	)
	expectKind(t, err, Redefinition)
}

func TestEntryFunctionCannotBeCalled(t *testing.T) {
	_, err := generate(t, Options{},
		ast.Var("int", "x", ast.Int(1)),
		ast.Expr(ast.Call(EntryFunction)),
		ast.Expr(ast.ID("x")),
	)
	lerrs := expectKind(t, err, UndeclaredFunction)
	if !strings.Contains(lerrs.Error(), "program entry") {
		t.Fatalf("unexpected message: %v", lerrs)
	}

	_, err = generate(t, Options{Scoping: ScopingLexical},
		ast.Fn("int", "f", nil, ast.Expr(ast.Call(EntryFunction))),
	)
	expectKind(t, err, UndeclaredFunction)
}

func TestFunctionWithoutTrailingValue(t *testing.T) {
	_, err := generate(t, Options{}, ast.Fn("int", "f", nil, ast.Var("int", "x", nil)))
	lerrs := expectKind(t, err, TypeMismatch)
	if !strings.Contains(lerrs.Error(), "yields no value") {
		t.Fatalf("unexpected message: %v", lerrs)
	}
	_, err = generate(t, Options{}, ast.Fn("int", "g", nil, ast.Expr(ast.Flt(1))))
	expectKind(t, err, TypeMismatch)
}

func TestVoidFunctionCallHasNoValue(t *testing.T) {
	result, program := mustRun(t, Options{},
		ast.Fn("void", "noop", ast.Params(ast.Param("int", "a")), ast.Expr(ast.ID("a"))),
		ast.Expr(ast.Call("noop", ast.Int(1))),
	)
	if !result.IsVoid() {
		t.Fatalf("entry returned %v, want void", result)
	}
	if program.Entry().Sig.Return.Kind() != ir.KindVoid {
		t.Fatalf("entry signature %s, want void result", program.Entry().Sig)
	}
	_, err := generate(t, Options{},
		ast.Fn("void", "noop", nil, ast.Expr(ast.Int(1))),
		ast.Expr(ast.Bin(ast.OpPlus, ast.Call("noop"), ast.Int(1))),
	)
	expectKind(t, err, TypeMismatch)
}

func TestRecursiveCallIsBoundedAtRuntime(t *testing.T) {
	program, err := generate(t, Options{MaxCallDepth: 100},
		ast.Fn("int", "down", ast.Params(ast.Param("int", "n")),
			ast.Expr(ast.Call("down", ast.Bin(ast.OpMinus, ast.ID("n"), ast.Int(1))))),
		ast.Expr(ast.Call("down", ast.Int(3))),
	)
	if err != nil {
		t.Fatalf("recursive function should lower: %v", err)
	}
	_, err = program.Run(context.Background())
	if !errors.Is(err, jit.ErrStackOverflow) {
		t.Fatalf("expected stack overflow, got %v", err)
	}
}

func TestFlatScopingHidesProgramVariables(t *testing.T) {
	_, err := generate(t, Options{Scoping: ScopingFlat},
		ast.Var("int", "x", ast.Int(2)),
		ast.Fn("int", "f", nil, ast.Expr(ast.Bin(ast.OpPlus, ast.ID("x"), ast.Int(1)))),
		ast.Expr(ast.Call("f")),
	)
	expectKind(t, err, UndeclaredVariable)
}

func TestLexicalScopingSeesProgramVariables(t *testing.T) {
	result, program := mustRun(t, Options{Scoping: ScopingLexical},
		ast.Var("int", "x", ast.Int(2)),
		ast.Fn("int", "bump", nil, ast.Expr(ast.Assign("x", ast.Bin(ast.OpPlus, ast.ID("x"), ast.Int(1))))),
		ast.Expr(ast.Call("bump")),
		ast.Expr(ast.Call("bump")),
	)
	if result.Int != 4 {
		t.Fatalf("bump() = %v, want 4", result)
	}
	x, err := program.Engine().ReadGlobal("x")
	if err != nil {
		t.Fatalf("ReadGlobal: %v", err)
	}
	if x.Int != 4 {
		t.Fatalf("x = %v, want 4", x)
	}
}

func TestLexicalScopingKeepsOtherFunctionsSlotsPrivate(t *testing.T) {
	_, err := generate(t, Options{Scoping: ScopingLexical},
		ast.Fn("int", "outer", ast.Params(ast.Param("int", "a")),
			ast.Fn("int", "inner", nil, ast.Expr(ast.ID("a"))),
			ast.Expr(ast.Call("inner")),
		),
	)
	lerrs := expectKind(t, err, UndeclaredVariable)
	if !strings.Contains(lerrs.Error(), "not visible from inner") {
		t.Fatalf("unexpected message: %v", lerrs)
	}
}

func TestLexicalRedeclarationGetsFreshGlobal(t *testing.T) {
	result, program := mustRun(t, Options{Scoping: ScopingLexical},
		ast.Var("int", "x", ast.Int(1)),
		ast.Var("double", "x", ast.Flt(2.5)),
		ast.Expr(ast.ID("x")),
	)
	if result.Float != 2.5 {
		t.Fatalf("x = %v, want 2.5", result)
	}
	if program.Module().Global("x.1") == nil {
		t.Fatalf("redeclaration should allocate x.1:\n%s", ir.Format(program.Module()))
	}
}

func TestScenarioSumOfDeclaredVariables(t *testing.T) {
	for _, scoping := range []Scoping{ScopingFlat, ScopingLexical} {
		t.Run(scoping.String(), func(t *testing.T) {
			result, _ := mustRun(t, Options{Scoping: scoping},
				ast.Var("int", "x", ast.Int(2)),
				ast.Var("int", "y", ast.Int(3)),
				ast.Expr(ast.Assign("x", ast.Bin(ast.OpPlus, ast.ID("x"), ast.ID("y")))),
			)
			if result.Int != 5 {
				t.Fatalf("x = %v, want 5", result)
			}
		})
	}
}

func TestScenarioFunctionReturnsTrailingValue(t *testing.T) {
	result, program := mustRun(t, Options{},
		ast.Fn("int", "f", ast.Params(ast.Param("int", "a"), ast.Param("int", "b")),
			ast.Expr(ast.Bin(ast.OpPlus, ast.ID("a"), ast.ID("b")))),
		ast.Expr(ast.Call("f", ast.Int(2), ast.Int(3))),
	)
	if result.Int != 5 {
		t.Fatalf("f(2, 3) = %v, want 5", result)
	}
	text := ir.Format(program.Module())
	for _, want := range []string{"define i64 @f(i64 %a, i64 %b)", "store i64 %a, i64* %a1", "define i64 @main()"} {
		if !strings.Contains(text, want) {
			t.Fatalf("module missing %q:\n%s", want, text)
		}
	}
}

func TestScenarioUndeclaredAssignmentEmitsNothing(t *testing.T) {
	program, err := generate(t, Options{}, ast.Expr(ast.Assign("y", ast.Int(1))))
	lerrs := expectKind(t, err, UndeclaredVariable)
	if len(lerrs.Errors) != 1 {
		t.Fatalf("expected one failure, got %v", lerrs.Kinds())
	}
	if n := len(program.Entry().Entry().Instrs); n != 0 {
		t.Fatalf("entry block has %d instructions:\n%s", n, ir.Format(program.Module()))
	}
}

func TestCollectModeReportsEveryFailureOnce(t *testing.T) {
	_, err := generate(t, Options{Diagnostics: DiagnosticsCollect},
		ast.Expr(ast.Assign("y", ast.Int(1))),
		ast.Fn("int", "f", nil, ast.Expr(ast.ID("q"))),
		ast.Var("string", "s", nil),
		ast.Var("int", "ok", ast.Int(1)),
		ast.Expr(ast.ID("z")),
	)
	lerrs := expectKind(t, err, UndeclaredVariable)
	want := []ErrorKind{UndeclaredVariable, UndeclaredVariable, UnsupportedType, UndeclaredVariable}
	got := lerrs.Kinds()
	if len(got) != len(want) {
		t.Fatalf("kinds = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("kinds = %v, want %v", got, want)
		}
	}
}

func TestRepeatedRunsStartFromZeroedVariables(t *testing.T) {
	for _, scoping := range []Scoping{ScopingFlat, ScopingLexical} {
		t.Run(scoping.String(), func(t *testing.T) {
			program, err := generate(t, Options{Scoping: scoping},
				ast.Var("int", "x", nil),
				ast.Expr(ast.Assign("x", ast.Bin(ast.OpPlus, ast.ID("x"), ast.Int(1)))),
			)
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			for i := 0; i < 2; i++ {
				result, err := program.Run(context.Background())
				if err != nil {
					t.Fatalf("Run %d: %v", i, err)
				}
				if result.Int != 1 {
					t.Fatalf("run %d: x = %v, want 1", i, result)
				}
			}
		})
	}
}

func TestFailFastStopsAtFirstFailure(t *testing.T) {
	_, err := generate(t, Options{},
		ast.Expr(ast.ID("a")),
		ast.Expr(ast.ID("b")),
	)
	lerrs := expectKind(t, err, UndeclaredVariable)
	if len(lerrs.Errors) != 1 || !strings.Contains(lerrs.Error(), "a not declared") {
		t.Fatalf("unexpected failures: %v", lerrs)
	}
}

func TestGenerateTwiceAndRunBeforeGenerate(t *testing.T) {
	program := NewProgram(Options{})
	if _, err := program.Run(context.Background()); !errors.Is(err, ErrNotGenerated) {
		t.Fatalf("expected ErrNotGenerated, got %v", err)
	}
	if err := program.Generate(ast.Blk()); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := program.Generate(ast.Blk()); !errors.Is(err, ErrAlreadyGenerated) {
		t.Fatalf("expected ErrAlreadyGenerated, got %v", err)
	}
	result, err := program.Run(context.Background())
	if err != nil || !result.IsVoid() {
		t.Fatalf("empty program = %v, %v", result, err)
	}
}

func TestErrorCarriesSpan(t *testing.T) {
	id := ast.ID("ghost")
	ast.SetSpan(id, ast.Span{Start: ast.Position{Line: 3, Column: 7}, End: ast.Position{Line: 3, Column: 12}})
	_, err := generate(t, Options{}, ast.Expr(id))
	lerrs := expectKind(t, err, UndeclaredVariable)
	if got := lerrs.Errors[0]; got.Span.Start.Line != 3 || !strings.HasPrefix(got.Error(), "3:7: ") {
		t.Fatalf("unexpected error %q", got.Error())
	}
}
