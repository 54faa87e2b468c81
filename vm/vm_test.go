package vm_test

import (
	"bytes"
	"io"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/rami3l/emberlox/vm"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func init() { logrus.SetLevel(logrus.DebugLevel) }

// captureStdout runs f with os.Stdout redirected to a pipe and returns
// everything printed to it, trimmed of its trailing newline.
func captureStdout(t *testing.T, f func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	assert.NoError(t, err)
	old := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = old }()

	f()

	w.Close()
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return strings.TrimSuffix(buf.String(), "\n")
}

// assertEval runs src as one program against a fresh VM and compares its
// captured `print` output (newline-joined) against want. If errSubstr is
// non-empty, it instead asserts the interpretation fails with an error
// containing errSubstr and skips the output comparison.
func assertEval(t *testing.T, src, want, errSubstr string) {
	t.Helper()
	vm_ := vm.NewVM()
	var err error
	got := captureStdout(t, func() { err = vm_.InterpretFile(src) })
	switch {
	case errSubstr != "":
		assert.ErrorContains(t, err, errSubstr)
	default:
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestCalculator(t *testing.T) {
	assertEval(t, `print 2 +2;`, "4", "")
	assertEval(t, `print 11.4 + 5.14 / 19198.10;`, "11.400267734827926", "")
	assertEval(t, `print -6 *(-4+ -3) == 6*4 + 2  *((((9))));`, "true", "")
	assertEval(t,
		heredoc.Doc(`
			print 4/1 - 4/3 + 4/5 - 4/7 + 4/9 - 4/11
				+ 4/13 - 4/15 + 4/17 - 4/19 + 4/21 - 4/23;
		`),
		"3.058402765927333", "",
	)
}

func TestStringConcat(t *testing.T) {
	assertEval(t, `print "foo" + "bar";`, "foobar", "")
	assertEval(t, `var a = "foo"; var b = "bar"; print a + b + a;`, "foobarfoo", "")
}

func TestVarsBlocks(t *testing.T) {
	src := heredoc.Doc(`
		var foo = 2;
		print foo + 3 == 1 + foo * foo;
		var bar;
		print bar;
		bar = foo = 2;
		print foo;
		print bar;
		{ foo = foo + 1; var bar; var foo1 = foo; foo1 = foo1 + 1; }
		print foo;
	`)
	want := strings.Join([]string{"true", "nil", "2", "2", "3"}, "\n")
	assertEval(t, src, want, "")
}

func TestBlockShadowing(t *testing.T) {
	assertEval(t, heredoc.Doc(`
		var a = "outer";
		{
			var a = "inner";
			print a;
		}
		print a;
	`), "inner\nouter", "")
}

func TestVarOwnInit(t *testing.T) {
	assertEval(t, `var foo = 2; { var foo = foo; }`, "",
		"Can't read local variable in its own initializer.")
}

func TestUndefinedGlobal(t *testing.T) {
	assertEval(t, `print nope;`, "", "Undefined variable 'nope'.")
}

func TestUndefinedGlobalAssign(t *testing.T) {
	assertEval(t, `nope = 1;`, "", "Undefined variable 'nope'.")
}

func TestRuntimeTypeErrorNegate(t *testing.T) {
	assertEval(t, `print -"no";`, "", "Operand must be a number.")
}

func TestRuntimeTypeErrorAdd(t *testing.T) {
	assertEval(t, `print 1 + "no";`, "", "Operands must be two numbers or two strings.")
}

func TestRuntimeTypeErrorCompare(t *testing.T) {
	assertEval(t, `print 1 < "no";`, "", "Operands must be numbers.")
}

func TestInvalidAssignmentTarget(t *testing.T) {
	assertEval(t, `1 + 2 = 3;`, "", "Invalid assignment target.")
}

func TestExpectExpression(t *testing.T) {
	assertEval(t, `;`, "", "Expect expression.")
}

func TestRedeclareInSameScope(t *testing.T) {
	assertEval(t, `{ var a = 1; var a = 2; }`, "",
		"Already a variable with this name in this scope.")
}

func TestConstantPoolOverflow(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 257; i++ {
		b.WriteString("1;\n")
	}
	assertEval(t, b.String(), "", "Too many constants in one chunk.")
}

func TestLocalOverflow(t *testing.T) {
	var b strings.Builder
	b.WriteString("{\n")
	for i := 0; i < 257; i++ {
		b.WriteString("var a" + strconv.Itoa(i) + ";\n")
	}
	b.WriteString("}\n")
	assertEval(t, b.String(), "", "Too many local variables in this scope.")
}
