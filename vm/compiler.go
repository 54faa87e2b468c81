package vm

import (
	"fmt"
	"math"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/rami3l/emberlox/debug"
	e "github.com/rami3l/emberlox/errors"
	"github.com/sirupsen/logrus"
)

// Parser drives the Scanner one token at a time and, through the
// Pratt-style rule table below, emits bytecode directly into the current
// Chunk — there is no intermediate AST. It owns the Compiler state
// (locals + scope depth) for the single top-level compile it's serving.
type Parser struct {
	*Scanner
	*Compiler
	vm         *VM
	prev, curr Token

	errors *multierror.Error
	// panicMode is set on the first error at a token and suppresses
	// cascaded diagnostics until sync() finds a resynchronization point.
	panicMode bool
}

func NewParser(vm *VM) *Parser { return &Parser{vm: vm, Compiler: NewCompiler()} }

// Compiler holds everything the single-pass compiler needs to resolve
// variables: the locals stack (name + declaration depth) and the current
// lexical scope depth. depth 0 is the global scope, where declarations
// are late-bound by name instead of being tracked here.
type Compiler struct {
	chunk  *Chunk
	locals []Local
	depth  int
}

func NewCompiler() *Compiler { return &Compiler{chunk: NewChunk()} }

// Uninit marks a local as "declared but not yet initialized", forbidding
// a variable's own initializer from referring to itself (spec.md §4.3.5).
const Uninit = -1

type Local struct {
	name  Token
	depth int
}

// addLocal is a Parser method (not Compiler's, despite living on the
// locals array) because exceeding the 256-local cap is a compile error
// (spec.md §4.3.5), reported through the normal ErrorAt path rather than
// a process-killing panic.
func (p *Parser) addLocal(name Token) {
	if len(p.locals) >= math.MaxUint8+1 {
		p.Error("Too many local variables in this scope.")
		return
	}
	p.locals = append(p.locals, Local{name, Uninit})
}

/* Single-pass compilation: prefix/infix rule bodies */

func (p *Parser) emitConst(val Value) { p.emitBytes(byte(OpConst), p.mkConst(val)) }

// mkConst adds val to the current chunk's constant pool, reporting a
// compile error instead of panicking once the pool's 256-entry, one-byte
// operand limit is exceeded (spec.md §4.2).
func (p *Parser) mkConst(val Value) byte {
	const_ := p.currChunk().AddConst(val)
	if const_ > math.MaxUint8 {
		p.Error("Too many constants in one chunk.")
		return 0
	}
	return byte(const_)
}

func (p *Parser) num(_canAssign bool) {
	val, err := strconv.ParseFloat(p.prev.String(), 64)
	if err != nil {
		p.errors = multierror.Append(p.errors, err)
	}
	p.emitConst(VNum(val))
}

func (p *Parser) grouping(_canAssign bool) {
	p.expr()
	p.consume(TRParen, "Expect ')' after expression.")
}

func (p *Parser) lit(_canAssign bool) {
	switch p.prev.Type {
	case TFalse:
		p.emitBytes(byte(OpFalse))
	case TNil:
		p.emitBytes(byte(OpNil))
	case TTrue:
		p.emitBytes(byte(OpTrue))
	default:
		panic(e.Unreachable)
	}
}

func (p *Parser) str(_canAssign bool) {
	runes := p.prev.Runes
	// COPY the lexeme inside the quotes as a new heap string.
	unquoted := string(runes[1 : len(runes)-1])
	p.emitConst(p.vm.allocString(unquoted))
}

func (p *Parser) var_(canAssign bool) { p.namedVar(p.prev, canAssign) }

func (p *Parser) namedVar(name Token, canAssign bool) {
	slot := p.resolveLocal(name)

	var (
		arg      byte
		get, set OpCode
	)
	if slot == Uninit {
		arg, get, set = p.identConst(&name), OpGetGlobal, OpSetGlobal
	} else {
		arg, get, set = byte(slot), OpGetLocal, OpSetLocal
	}

	switch {
	case canAssign && p.match(TEqual):
		p.expr()
		p.emitBytes(byte(set), arg)
	default:
		p.emitBytes(byte(get), arg)
	}
}

func (p *Parser) unary(_canAssign bool) {
	op := p.prev.Type

	// Compile the operand.
	p.parsePrec(PrecUnary)

	// Emit the operator instruction.
	switch op {
	case TBang:
		p.emitBytes(byte(OpNot))
	case TMinus:
		p.emitBytes(byte(OpNeg))
	default:
		panic(e.Unreachable)
	}
}

func (p *Parser) binary(_canAssign bool) {
	op := p.prev.Type
	rule := parseRules[op]

	// Compile the RHS, one precedence level higher for left-associativity.
	p.parsePrec(rule.Prec + 1)

	// Emit the operator instruction(s).
	switch op {
	case TBangEqual:
		p.emitBytes(byte(OpEqual), byte(OpNot))
	case TEqualEqual:
		p.emitBytes(byte(OpEqual))
	case TGreater:
		p.emitBytes(byte(OpGreater))
	case TGreaterEqual:
		p.emitBytes(byte(OpLess), byte(OpNot))
	case TLess:
		p.emitBytes(byte(OpLess))
	case TLessEqual:
		p.emitBytes(byte(OpGreater), byte(OpNot))
	case TPlus:
		p.emitBytes(byte(OpAdd))
	case TMinus:
		p.emitBytes(byte(OpSub))
	case TStar:
		p.emitBytes(byte(OpMul))
	case TSlash:
		p.emitBytes(byte(OpDiv))
	default:
		panic(e.Unreachable)
	}
}

func (p *Parser) expr() { p.parsePrec(PrecAssign) }

func (p *Parser) exprStmt() {
	p.expr()
	p.consume(TSemi, "Expect ';' after expression.")
	p.emitBytes(byte(OpPop))
}

func (p *Parser) printStmt() {
	p.expr()
	p.consume(TSemi, "Expect ';' after value.")
	p.emitBytes(byte(OpPrint))
}

func (p *Parser) block() {
	for !p.check(TRBrace) && !p.check(TEOF) {
		p.decl()
	}
	p.consume(TRBrace, "Expect '}' after block.")
}

func (p *Parser) stmt() {
	switch {
	case p.match(TPrint):
		p.printStmt()
	case p.match(TLBrace):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.exprStmt()
	}
}

func (p *Parser) identConst(name *Token) byte { return p.mkConst(p.vm.allocString(name.String())) }

func (p *Parser) defVar(global byte) { p.emitBytes(byte(OpDefGlobal), global) }

func (p *Parser) varDecl() {
	if target := p.consume(TIdent, "Expect variable name."); target != nil {
		name := *target
		p.declareVariable(name)

		switch {
		case p.match(TEqual):
			p.expr()
		default:
			p.emitBytes(byte(OpNil))
		}
		p.consume(TSemi, "Expect ';' after variable declaration.")

		if p.depth > 0 {
			p.markInit()
			return
		}
		p.defVar(p.identConst(&name))
		return
	}

	// The assignee is invalid; consume the rest of the declaration for its
	// side effects and fall into the usual error-recovery path.
	switch {
	case p.match(TEqual):
		p.expr()
	default:
		p.emitBytes(byte(OpNil))
	}
	p.consume(TSemi, "Expect ';' after variable declaration.")
}

func (p *Parser) decl() {
	switch {
	case p.match(TVar):
		p.varDecl()
	default:
		p.stmt()
	}
	if p.panicMode {
		p.sync()
	}
}

type ParseFn = func(p *Parser, canAssign bool)

type ParseRule struct {
	Prefix, Infix ParseFn
	Prec
}

var parseRules []ParseRule

func init() {
	parseRules = []ParseRule{
		TLParen:       {(*Parser).grouping, nil, PrecNone},
		TMinus:        {(*Parser).unary, (*Parser).binary, PrecTerm},
		TPlus:         {nil, (*Parser).binary, PrecTerm},
		TSlash:        {nil, (*Parser).binary, PrecFactor},
		TStar:         {nil, (*Parser).binary, PrecFactor},
		TBang:         {(*Parser).unary, nil, PrecNone},
		TBangEqual:    {nil, (*Parser).binary, PrecEqual},
		TEqualEqual:   {nil, (*Parser).binary, PrecEqual},
		TGreater:      {nil, (*Parser).binary, PrecComp},
		TGreaterEqual: {nil, (*Parser).binary, PrecComp},
		TLess:         {nil, (*Parser).binary, PrecComp},
		TLessEqual:    {nil, (*Parser).binary, PrecComp},
		TIdent:        {(*Parser).var_, nil, PrecNone},
		TStr:          {(*Parser).str, nil, PrecNone},
		TNum:          {(*Parser).num, nil, PrecNone},
		TFalse:        {(*Parser).lit, nil, PrecNone},
		TNil:          {(*Parser).lit, nil, PrecNone},
		TTrue:         {(*Parser).lit, nil, PrecNone},
		TEOF:          {},
	}
}

// parsePrec is the core Pratt-precedence-climbing algorithm: parse one
// prefix expression, then repeatedly fold in infix operators whose
// precedence is at least prec.
func (p *Parser) parsePrec(prec Prec) {
	p.advance()

	prefix := parseRules[p.prev.Type].Prefix
	if prefix == nil {
		p.Error("Expect expression.")
		return
	}
	canAssign := prec <= PrecAssign
	prefix(p, canAssign)

	for {
		rule := parseRules[p.curr.Type]
		if rule.Prec < prec {
			break
		}
		p.advance()
		if rule.Infix == nil {
			panic(e.Unreachable)
		}
		rule.Infix(p, canAssign)
	}

	if canAssign && p.match(TEqual) {
		p.Error("Invalid assignment target.")
	}
}

/* Parsing helpers */

func (p *Parser) check(ty TokenType) bool     { return p.curr.Type == ty }
func (p *Parser) checkPrev(ty TokenType) bool { return p.prev.Type == ty }

func (p *Parser) advance() {
	p.prev = p.curr
	for {
		if p.curr = p.ScanToken(); !p.check(TErr) {
			break
		}
		p.ErrorAtCurr(p.curr.String())
	}
}

func (p *Parser) match(ty TokenType) (matched bool) {
	if !p.check(ty) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) consume(ty TokenType, errorMsg string) *Token {
	if !p.check(ty) {
		p.ErrorAtCurr(errorMsg)
		return nil
	}
	p.advance()
	return &p.prev
}

/* Compiling helpers */

// Compile runs the driver algorithm from spec.md §4.3.1: prime the
// parser, compile declarations until EOF, emit a trailing OP_RETURN.
// The returned error (non-nil whenever HadError would report true) is what
// the caller (VM.interpret) uses to decide whether the emitted chunk is
// usable; bytecode is still emitted past the first
// error (spec.md §9 "Open behavior").
func (p *Parser) Compile(src string) (*Chunk, error) {
	p.Scanner = NewScanner(src)
	p.advance()

	for !p.match(TEOF) {
		p.decl()
	}

	p.endCompiler()
	return p.currChunk(), p.errors.ErrorOrNil()
}

func (p *Parser) currChunk() *Chunk { return p.Compiler.chunk }

func (p *Parser) emitBytes(bs ...byte) {
	for _, b := range bs {
		p.currChunk().Write(b, p.prev.Line)
	}
}

func (p *Parser) endCompiler() {
	p.emitBytes(byte(OpReturn))
	if debug.DEBUG {
		logrus.Debugln(p.currChunk().Disassemble("<script>"))
	}
}

/* Variable resolution (spec.md §4.3.5) */

func (p *Parser) declareVariable(name Token) {
	if p.depth == 0 {
		return // Globals are resolved by name at runtime, not tracked here.
	}
	for i := len(p.locals) - 1; i >= 0; i-- {
		local := p.locals[i]
		if local.depth != Uninit && local.depth < p.depth {
			break // Shadowing a variable from an enclosing scope is fine.
		}
		if name.Eq(local.name) {
			p.Error("Already a variable with this name in this scope.")
		}
	}
	p.addLocal(name)
}

func (p *Parser) markInit() { p.locals[len(p.locals)-1].depth = p.depth }

func (p *Parser) resolveLocal(name Token) (slot int) {
	for i := len(p.locals) - 1; i >= 0; i-- {
		local := p.locals[i]
		if name.Eq(local.name) {
			if local.depth == Uninit {
				p.Error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return Uninit // Not found locally: treat as a global reference.
}

func (p *Parser) beginScope() { p.depth++ }

func (p *Parser) endScope() {
	p.depth--
	for len(p.locals) > 0 && p.locals[len(p.locals)-1].depth > p.depth {
		p.emitBytes(byte(OpPop)) // Pop the local off both the stack and p.locals.
		p.locals = p.locals[:len(p.locals)-1]
	}
}

/* Precedence (spec.md §4.3) */

//go:generate stringer -type=Prec
type Prec int

const (
	PrecNone   Prec = iota
	PrecAssign      // =
	PrecOr          // or (reserved; and/or are not part of this core)
	PrecAnd         // and (reserved; see above)
	PrecEqual       // == !=
	PrecComp        // < > <= >=
	PrecTerm        // + -
	PrecFactor      // * /
	PrecUnary       // ! -
	PrecCall        // . ( ) (reserved; calls are not part of this core)
	PrecPrimary
)

/* Error handling (spec.md §7) */

// sync walks forward to the next semicolon or statement-starting keyword
// so one malformed statement doesn't cascade into a wall of spurious
// errors on the rest of the input.
func (p *Parser) sync() {
	p.panicMode = false
	for !p.check(TEOF) && !p.checkPrev(TSemi) {
		switch p.curr.Type {
		case TClass, TFun, TVar, TFor, TIf, TWhile, TPrint, TReturn:
			return
		default:
			p.advance()
		}
	}
}

func (p *Parser) ErrorAt(tk Token, reason string) {
	if p.panicMode {
		return
	}
	p.panicMode = true

	var where string
	switch tk.Type {
	case TEOF:
		where = " at end"
	case TErr:
		where = ""
	default:
		where = fmt.Sprintf(" at '%s'", tk)
	}
	err := &e.CompilationError{Line: tk.Line, Where: where, Reason: reason}

	if debug.DEBUG {
		logrus.Debugln(p.currChunk().Disassemble("<error>"))
		logrus.Debugln(err)
	}

	p.errors = multierror.Append(p.errors, err)
}

func (p *Parser) Error(reason string)       { p.ErrorAt(p.prev, reason) }
func (p *Parser) ErrorAtCurr(reason string) { p.ErrorAt(p.curr, reason) }
func (p *Parser) HadError() bool            { return p.errors != nil }
