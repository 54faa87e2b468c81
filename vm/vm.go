package vm

import (
	"fmt"

	"github.com/chzyer/readline"
	"github.com/rami3l/emberlox/debug"
	e "github.com/rami3l/emberlox/errors"
	"github.com/sirupsen/logrus"
)

// stackMax is the value stack's preallocated capacity. push checks it
// only through debug.Assertf, so the limit is enforced only when
// debug.DEBUG is set; otherwise the stack grows past it. The compiler
// does not limit expression nesting or the number of temporaries.
const stackMax = 256

// VM is long-lived across calls to interpret: its stack, globals table,
// and heap-object list persist from one REPL line (or one file load) to
// the next, while the Scanner/Parser/Compiler serving each call are
// fresh values (spec.md §9 Open Question, resolved in SPEC_FULL.md §12).
type VM struct {
	chunk *Chunk
	ip    int
	stack []Value

	globals map[string]Value
	objects *Obj
}

func NewVM() *VM {
	return &VM{stack: make([]Value, 0, stackMax), globals: map[string]Value{}}
}

func (vm *VM) push(val Value) {
	debug.Assertf(len(vm.stack) < stackMax, "value stack overflow")
	vm.stack = append(vm.stack, val)
}

func (vm *VM) pop() (last Value) {
	len_ := len(vm.stack)
	vm.stack, last = vm.stack[:len_-1], vm.stack[len_-1]
	return
}

func (vm *VM) peek(distance int) Value { return vm.stack[len(vm.stack)-1-distance] }

func (vm *VM) resetStack() { vm.stack = vm.stack[:0] }

// REPL reads one line at a time through a readline.Instance (history
// enabled, prompt "> ") and feeds each to InterpretREPL, printing any
// error to stdout without killing the session — a bad line doesn't end
// the REPL, matching the teacher's "keep going" REPL loop shape.
func (vm *VM) REPL() error {
	rl, err := readline.NewEx(&readline.Config{Prompt: "> "})
	if err != nil {
		return err
	}
	defer rl.Close()
	rl.HistoryLimit(1000)

	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF (^D) or readline.ErrInterrupt (^C)
			return nil
		}
		if err := vm.InterpretREPL(line); err != nil {
			fmt.Println(err)
		}
	}
}

// InterpretFile compiles and runs src as a whole program: one shot, no
// retry. This is what cmd/cmd.go calls for a path argument.
func (vm *VM) InterpretFile(src string) error { return vm.interpret(src) }

// InterpretREPL is the supplemented two-pass REPL entrypoint (see
// SPEC_FULL.md §11): try the line as-is, and only on failure retry it
// wrapped as a single printed expression, so a bare expression without a
// trailing ';' still evaluates at the prompt. If both passes fail, the
// error from the first pass (compile or runtime) is what the caller sees.
func (vm *VM) InterpretREPL(line string) error {
	if err := vm.interpret(line); err == nil {
		return nil
	} else if retryErr := vm.interpret("print " + line + ";"); retryErr == nil {
		return nil
	} else {
		return err
	}
}

func (vm *VM) interpret(src string) error {
	parser := NewParser(vm)
	chunk, err := parser.Compile(src)
	if err != nil {
		return err
	}
	vm.chunk = chunk
	vm.ip = 0
	return vm.run()
}

// Free tears down the VM's heap-object list. It is called once by the
// driver when a session ends (REPL exit or a single file run finishes),
// not between individual interpret calls: the object list is meant to
// persist and grow across every line of one REPL session (spec.md §5).
func (vm *VM) Free() { vm.freeObjects() }

func (vm *VM) readByte() (res byte) {
	res = vm.chunk.code[vm.ip]
	vm.ip++
	return
}

func (vm *VM) readConst() Value { return vm.chunk.consts[vm.readByte()] }

func (vm *VM) runtimeError(format string, a ...any) error {
	// ip-1 is the last byte read, which belongs to the instruction that
	// faulted (its opcode, or its operand for instructions that take one);
	// both bytes carry the same source line.
	line := vm.chunk.lines[vm.ip-1]
	vm.resetStack()
	return &e.RuntimeError{Line: line, Reason: fmt.Sprintf(format, a...)}
}

func (vm *VM) run() error {
	for {
		if debug.DEBUG {
			logrus.Debugln(vm.stackTrace())
			instDump, _ := vm.chunk.DisassembleInst(vm.ip)
			logrus.Debugln(instDump)
		}

		switch inst := OpCode(vm.readByte()); inst {
		case OpConst:
			vm.push(vm.readConst())
		case OpNil:
			vm.push(VNil{})
		case OpTrue:
			vm.push(VBool(true))
		case OpFalse:
			vm.push(VBool(false))
		case OpPop:
			vm.pop()

		case OpGetLocal:
			vm.push(vm.stack[vm.readByte()])
		case OpSetLocal:
			vm.stack[vm.readByte()] = vm.peek(0)

		case OpGetGlobal:
			name, _ := asString(vm.readConst())
			val, ok := vm.globals[name]
			if !ok {
				return vm.runtimeError("Undefined variable '%s'.", name)
			}
			vm.push(val)
		case OpDefGlobal:
			name, _ := asString(vm.readConst())
			vm.globals[name] = vm.peek(0)
			vm.pop()
		case OpSetGlobal:
			name, _ := asString(vm.readConst())
			if _, ok := vm.globals[name]; !ok {
				return vm.runtimeError("Undefined variable '%s'.", name)
			}
			vm.globals[name] = vm.peek(0) // Assignment is an expression: leave the value on the stack.

		case OpEqual:
			rhs := vm.pop()
			vm.push(valuesEqual(vm.pop(), rhs))
		case OpGreater:
			if err := vm.binaryOp(VGreater, "Operands must be numbers."); err != nil {
				return err
			}
		case OpLess:
			if err := vm.binaryOp(VLess, "Operands must be numbers."); err != nil {
				return err
			}

		case OpNot:
			vm.push(!VTruthy(vm.pop()))
		case OpNeg:
			if _, ok := vm.peek(0).(VNum); !ok {
				return vm.runtimeError("Operand must be a number.")
			}
			val, _ := VNeg(vm.pop())
			vm.push(val)

		case OpAdd:
			lstr, lok := asString(vm.peek(1))
			rstr, rok := asString(vm.peek(0))
			switch {
			case lok && rok:
				vm.pop()
				vm.pop()
				vm.push(vm.allocString(lstr + rstr))
			default:
				if err := vm.binaryOp(VAdd, "Operands must be two numbers or two strings."); err != nil {
					return err
				}
			}
		case OpSub:
			if err := vm.binaryOp(VSub, "Operands must be numbers."); err != nil {
				return err
			}
		case OpMul:
			if err := vm.binaryOp(VMul, "Operands must be numbers."); err != nil {
				return err
			}
		case OpDiv:
			if err := vm.binaryOp(VDiv, "Operands must be numbers."); err != nil {
				return err
			}

		case OpPrint:
			fmt.Println(vm.pop())

		case OpReturn:
			return nil

		default:
			return vm.runtimeError("unknown instruction '%d'", inst)
		}
	}
}

// binaryOp pops two operands, applies op, and pushes the result; op
// reports ok=false for a type mismatch, in which case msg becomes the
// runtime error (spec.md §4.4's "Operands must be numbers." family).
func (vm *VM) binaryOp(op func(Value, Value) (Value, bool), msg string) error {
	rhs := vm.pop()
	lhs := vm.pop()
	res, ok := op(lhs, rhs)
	if !ok {
		return vm.runtimeError(msg)
	}
	vm.push(res)
	return nil
}

func (vm *VM) stackTrace() string {
	res := "          "
	for _, slot := range vm.stack {
		res += fmt.Sprintf("[ %s ]", slot)
	}
	return res
}
