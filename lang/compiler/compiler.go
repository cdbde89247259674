package compiler

import (
	"fmt"
	"strconv"

	"github.com/mna/talon/lang/scanner"
	"github.com/mna/talon/lang/token"
)

// maxLocals and maxUpvalues mirror MaxConstants: all three are addressed by
// an 8-bit operand, so 256 is an absolute ceiling, not a tuning knob.
const (
	maxLocals   = 256
	maxUpvalues = 256
)

// A Precedence orders the binding strength of infix operators, lowest
// first. parsePrecedence(p) parses everything of the given precedence or
// higher.
type Precedence uint8

const (
	PrecNone       Precedence = iota
	PrecAssignment            // =
	PrecOr                    // or
	PrecAnd                   // and
	PrecEquality              // == !=
	PrecComparison            // < > <= >=
	PrecTerm                  // + -
	PrecFactor                // * /
	PrecUnary                 // ! -
	PrecCall                  // . ()
	PrecPrimary
)

type parseFn func(p *parser, canAssign bool)

type parseRule struct {
	prefix parseFn
	infix  parseFn
	prec   Precedence
}

var rules map[token.Kind]parseRule

func init() {
	rules = map[token.Kind]parseRule{
		token.LPAREN:  {prefix: (*parser).grouping, infix: (*parser).call, prec: PrecCall},
		token.DOT:     {infix: (*parser).dot, prec: PrecCall},
		token.MINUS:   {prefix: (*parser).unary, infix: (*parser).binary, prec: PrecTerm},
		token.PLUS:    {infix: (*parser).binary, prec: PrecTerm},
		token.SLASH:   {infix: (*parser).binary, prec: PrecFactor},
		token.STAR:    {infix: (*parser).binary, prec: PrecFactor},
		token.BANG:    {prefix: (*parser).unary},
		token.BANG_EQ: {infix: (*parser).binary, prec: PrecEquality},
		token.EQ_EQ:   {infix: (*parser).binary, prec: PrecEquality},
		token.GT:      {infix: (*parser).binary, prec: PrecComparison},
		token.GE:      {infix: (*parser).binary, prec: PrecComparison},
		token.LT:      {infix: (*parser).binary, prec: PrecComparison},
		token.LE:      {infix: (*parser).binary, prec: PrecComparison},
		token.IDENT:   {prefix: (*parser).variable},
		token.STRING:  {prefix: (*parser).string},
		token.NUMBER:  {prefix: (*parser).number},
		token.AND:     {infix: (*parser).and_, prec: PrecAnd},
		token.OR:      {infix: (*parser).or_, prec: PrecOr},
		token.FALSE:   {prefix: (*parser).literal},
		token.NIL:     {prefix: (*parser).literal},
		token.TRUE:    {prefix: (*parser).literal},
		token.THIS:    {prefix: (*parser).this_},
	}
}

func getRule(kind token.Kind) parseRule { return rules[kind] }

// FunctionType distinguishes the four shapes of compiled function body: the
// implicit top-level script, an ordinary function, a method, and a class's
// init method (which implicitly returns `this` and forbids `return <expr>`).
type FunctionType int

const (
	TypeScript FunctionType = iota
	TypeFunction
	TypeMethod
	TypeInitializer
)

type local struct {
	name       token.Token
	depth      int // -1 while its initializer is being compiled
	isCaptured bool
}

type upvalRef struct {
	index   uint8
	isLocal bool
}

// funcState is the per-compiler-in-flight state for one function body,
// chained to its lexically enclosing function via enclosing. The chain
// itself *is* the compiler stack described by spec.md: parsing a nested
// function pushes a new funcState, parsing its closing brace pops it.
type funcState struct {
	enclosing *funcState
	proto     *FunctionProto
	fnType    FunctionType

	locals     []local
	scopeDepth int
	upvalues   []upvalRef
}

type classState struct {
	enclosing *classState
}

// parser holds all compile-in-flight state: the token cursor, error
// accumulation/recovery, and the funcState/classState chains. There is
// exactly one parser per call to Compile; nothing here is shared globally,
// unlike the single-global-singleton C original this design is based on.
type parser struct {
	scan                scanner.Scanner
	previous, current   token.Token
	hadError, panicMode bool
	errs                []error
	scanErr             string

	cur   *funcState
	class *classState
}

// CompileError is a single compile-time diagnostic, formatted the way
// spec.md §7 requires: "[line N] Error at 'lexeme': <message>".
type CompileError struct {
	Line    int
	Lexeme  string
	Message string
}

func (e *CompileError) Error() string {
	where := "end"
	if e.Lexeme != "" {
		where = "'" + e.Lexeme + "'"
	}
	return fmt.Sprintf("[line %d] Error at %s: %s", e.Line, where, e.Message)
}

// atDesc renders the "at" clause of a diagnostic: the raw lexeme the
// erroring token spans, or empty at EOF (rendered as "end").
func atDesc(tok token.Token) string { return string(tok.Lexeme) }

// Compile tokenizes and compiles source into a top-level FunctionProto
// implementing the script. It returns the compiled function and a nil error
// slice on success; on failure it returns (nil, errs) with one *CompileError
// per diagnostic raised during parsing.
func Compile(source []byte) (*FunctionProto, []error) {
	p := &parser{}
	p.scan.Init(source, func(_ int, msg string) { p.scanErr = msg })

	p.pushFunc(TypeScript, "")
	p.advance()

	for !p.match(token.EOF) {
		p.declaration()
	}
	p.consume(token.EOF, "Expect end of expression")

	fn := p.popFunc()
	if p.hadError {
		return nil, p.errs
	}
	return fn, nil
}

func (p *parser) pushFunc(fnType FunctionType, name string) {
	fs := &funcState{
		enclosing: p.cur,
		fnType:    fnType,
		proto:     &FunctionProto{Name: name},
	}
	// Slot 0 is reserved: `this` for methods/initializers, unnamed (and thus
	// inaccessible to user code) otherwise.
	slot0 := local{depth: 0}
	if fnType == TypeMethod || fnType == TypeInitializer {
		slot0.name = token.Token{Lexeme: []byte("this")}
	}
	fs.locals = append(fs.locals, slot0)
	p.cur = fs
}

func (p *parser) popFunc() *FunctionProto {
	p.emitReturn()
	fn := p.cur.proto
	fn.UpvalueCount = len(p.cur.upvalues)
	for _, uv := range p.cur.upvalues {
		fn.Upvalues = append(fn.Upvalues, UpvalueDesc{Index: uv.index, IsLocal: uv.isLocal})
	}
	p.cur = p.cur.enclosing
	return fn
}

func (p *parser) currentChunk() *Chunk { return &p.cur.proto.Chunk }

// ---- token stream plumbing ----

func (p *parser) advance() {
	p.previous = p.current
	for {
		p.current = p.scan.Next()
		if p.current.Kind != token.ILLEGAL {
			break
		}
		p.errorAtCurrent(p.scanErr)
	}
}

func (p *parser) check(kind token.Kind) bool { return p.current.Kind == kind }

func (p *parser) match(kind token.Kind) bool {
	if !p.check(kind) {
		return false
	}
	p.advance()
	return true
}

func (p *parser) consume(kind token.Kind, msg string) {
	if p.current.Kind == kind {
		p.advance()
		return
	}
	p.errorAtCurrent(msg)
}

func (p *parser) errorAtCurrent(msg string) { p.errorAt(p.current, msg) }
func (p *parser) error(msg string)          { p.errorAt(p.previous, msg) }

func (p *parser) errorAt(tok token.Token, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true
	p.errs = append(p.errs, &CompileError{Line: tok.Line, Lexeme: atDesc(tok), Message: msg})
}

// synchronize discards tokens until a likely statement boundary, so that a
// single malformed statement does not cascade into spurious follow-on
// errors.
func (p *parser) synchronize() {
	p.panicMode = false
	for p.current.Kind != token.EOF {
		if p.previous.Kind == token.SEMI {
			return
		}
		switch p.current.Kind {
		case token.CLASS, token.FUN, token.VAR, token.FOR, token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		p.advance()
	}
}

// ---- byte emission ----

func (p *parser) emitByte(b byte) { p.currentChunk().Write(b, p.previous.Line) }
func (p *parser) emitOp(op OpCode) { p.emitByte(byte(op)) }
func (p *parser) emitOpByte(op OpCode, b byte) {
	p.emitOp(op)
	p.emitByte(b)
}

func (p *parser) emitReturn() {
	if p.cur.fnType == TypeInitializer {
		p.emitOpByte(OP_GET_LOCAL, 0)
	} else {
		p.emitOp(OP_NIL)
	}
	p.emitOp(OP_RETURN)
}

func (p *parser) makeConstant(v any) byte {
	idx, err := p.currentChunk().AddConstant(v)
	if err != nil {
		p.error(err.Error())
		return 0
	}
	return byte(idx)
}

func (p *parser) emitConstant(v any) {
	p.emitOpByte(OP_CONSTANT, p.makeConstant(v))
}

// emitJump emits op followed by a 2-byte placeholder and returns the offset
// of the first placeholder byte, to be patched later by patchJump.
func (p *parser) emitJump(op OpCode) int {
	p.emitOp(op)
	p.emitByte(0xff)
	p.emitByte(0xff)
	return len(p.currentChunk().Code) - 2
}

func (p *parser) patchJump(offset int) {
	// -2 to account for the 2-byte jump offset itself.
	jump := len(p.currentChunk().Code) - offset - 2
	if jump > 0xffff {
		p.error("Too much code to jump over")
	}
	code := p.currentChunk().Code
	code[offset] = byte(jump >> 8)
	code[offset+1] = byte(jump)
}

func (p *parser) emitLoop(loopStart int) {
	p.emitOp(OP_LOOP)
	offset := len(p.currentChunk().Code) - loopStart + 2
	if offset > 0xffff {
		p.error("Loop body too large")
	}
	p.emitByte(byte(offset >> 8))
	p.emitByte(byte(offset))
}

// ---- scope / locals / upvalues ----

func (p *parser) beginScope() { p.cur.scopeDepth++ }

func (p *parser) endScope() {
	p.cur.scopeDepth--
	fs := p.cur
	for len(fs.locals) > 0 && fs.locals[len(fs.locals)-1].depth > fs.scopeDepth {
		if fs.locals[len(fs.locals)-1].isCaptured {
			p.emitOp(OP_CLOSE_UPVALUE)
		} else {
			p.emitOp(OP_POP)
		}
		fs.locals = fs.locals[:len(fs.locals)-1]
	}
}

func identifiersEqual(a, b token.Token) bool { return string(a.Lexeme) == string(b.Lexeme) }

func (p *parser) addLocal(name token.Token) {
	if len(p.cur.locals) >= maxLocals {
		p.error("Too many local variables")
		return
	}
	p.cur.locals = append(p.cur.locals, local{name: name, depth: -1})
}

func (p *parser) declareVariable() {
	if p.cur.scopeDepth == 0 {
		return
	}
	name := p.previous
	for i := len(p.cur.locals) - 1; i >= 0; i-- {
		l := p.cur.locals[i]
		if l.depth != -1 && l.depth < p.cur.scopeDepth {
			break
		}
		if identifiersEqual(name, l.name) {
			p.error("Already a variable with this name in this scope")
		}
	}
	p.addLocal(name)
}

func (p *parser) identifierConstant(name token.Token) byte {
	return p.makeConstant(string(name.Lexeme))
}

func (p *parser) parseVariable(errMsg string) byte {
	p.consume(token.IDENT, errMsg)
	p.declareVariable()
	if p.cur.scopeDepth > 0 {
		return 0
	}
	return p.identifierConstant(p.previous)
}

func (p *parser) markInitialized() {
	if p.cur.scopeDepth == 0 {
		return
	}
	p.cur.locals[len(p.cur.locals)-1].depth = p.cur.scopeDepth
}

func (p *parser) defineVariable(global byte) {
	if p.cur.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emitOpByte(OP_DEFINE_GLOBAL, global)
}

func resolveLocal(p *parser, fs *funcState, name token.Token) int {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		l := fs.locals[i]
		if identifiersEqual(name, l.name) {
			if l.depth == -1 {
				p.error("Can't read local variable in its own initializer")
			}
			return i
		}
	}
	return -1
}

func addUpvalue(p *parser, fs *funcState, index uint8, isLocal bool) int {
	for i, uv := range fs.upvalues {
		if uv.index == index && uv.isLocal == isLocal {
			return i
		}
	}
	if len(fs.upvalues) >= maxUpvalues {
		p.error("Too many closure variables")
		return 0
	}
	fs.upvalues = append(fs.upvalues, upvalRef{index: index, isLocal: isLocal})
	return len(fs.upvalues) - 1
}

func resolveUpvalue(p *parser, fs *funcState, name token.Token) int {
	if fs.enclosing == nil {
		return -1
	}
	if local := resolveLocal(p, fs.enclosing, name); local != -1 {
		fs.enclosing.locals[local].isCaptured = true
		return addUpvalue(p, fs, uint8(local), true)
	}
	if up := resolveUpvalue(p, fs.enclosing, name); up != -1 {
		return addUpvalue(p, fs, uint8(up), false)
	}
	return -1
}

// ---- expressions ----

func (p *parser) parsePrecedence(prec Precedence) {
	p.advance()
	prefix := getRule(p.previous.Kind).prefix
	if prefix == nil {
		p.error("Expect expression")
		return
	}

	canAssign := prec <= PrecAssignment
	prefix(p, canAssign)

	for prec <= getRule(p.current.Kind).prec {
		p.advance()
		infix := getRule(p.previous.Kind).infix
		infix(p, canAssign)
	}

	if canAssign && p.match(token.EQ) {
		p.error("Invalid assignment target")
	}
}

func (p *parser) expression() { p.parsePrecedence(PrecAssignment) }

func (p *parser) number(_ bool) {
	v, err := strconv.ParseFloat(string(p.previous.Lexeme), 64)
	if err != nil {
		p.error("Invalid number literal")
		return
	}
	p.emitConstant(v)
}

func (p *parser) string(_ bool) {
	lexeme := p.previous.Lexeme
	p.emitConstant(string(lexeme[1 : len(lexeme)-1]))
}

func (p *parser) literal(_ bool) {
	switch p.previous.Kind {
	case token.FALSE:
		p.emitOp(OP_FALSE)
	case token.NIL:
		p.emitOp(OP_NIL)
	case token.TRUE:
		p.emitOp(OP_TRUE)
	}
}

func (p *parser) grouping(_ bool) {
	p.expression()
	p.consume(token.RPAREN, "Expect ')' after expression")
}

func (p *parser) unary(_ bool) {
	op := p.previous.Kind
	p.parsePrecedence(PrecUnary)
	switch op {
	case token.BANG:
		p.emitOp(OP_NOT)
	case token.MINUS:
		p.emitOp(OP_NEGATE)
	}
}

func (p *parser) binary(_ bool) {
	op := p.previous.Kind
	rule := getRule(op)
	p.parsePrecedence(rule.prec + 1)

	switch op {
	case token.BANG_EQ:
		p.emitOp(OP_EQUAL)
		p.emitOp(OP_NOT)
	case token.EQ_EQ:
		p.emitOp(OP_EQUAL)
	case token.GT:
		p.emitOp(OP_GREATER)
	case token.GE:
		p.emitOp(OP_LESS)
		p.emitOp(OP_NOT)
	case token.LT:
		p.emitOp(OP_LESS)
	case token.LE:
		p.emitOp(OP_GREATER)
		p.emitOp(OP_NOT)
	case token.PLUS:
		p.emitOp(OP_ADD)
	case token.MINUS:
		p.emitOp(OP_SUBTRACT)
	case token.STAR:
		p.emitOp(OP_MULTIPLY)
	case token.SLASH:
		p.emitOp(OP_DIVIDE)
	}
}

func (p *parser) and_(_ bool) {
	endJump := p.emitJump(OP_JUMP_IF_FALSE)
	p.emitOp(OP_POP)
	p.parsePrecedence(PrecAnd)
	p.patchJump(endJump)
}

func (p *parser) or_(_ bool) {
	elseJump := p.emitJump(OP_JUMP_IF_FALSE)
	endJump := p.emitJump(OP_JUMP)
	p.patchJump(elseJump)
	p.emitOp(OP_POP)
	p.parsePrecedence(PrecOr)
	p.patchJump(endJump)
}

func (p *parser) argumentList() byte {
	var argc int
	if !p.check(token.RPAREN) {
		for {
			p.expression()
			if argc == 255 {
				p.error("Can't have more than 255 arguments")
			}
			argc++
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RPAREN, "Expect ')' after arguments")
	return byte(argc)
}

func (p *parser) call(_ bool) {
	argc := p.argumentList()
	p.emitOpByte(OP_CALL, argc)
}

func (p *parser) dot(canAssign bool) {
	p.consume(token.IDENT, "Expect property name after '.'")
	name := p.identifierConstant(p.previous)

	switch {
	case canAssign && p.match(token.EQ):
		p.expression()
		p.emitOpByte(OP_SET_PROPERTY, name)
	case p.match(token.LPAREN):
		argc := p.argumentList()
		p.emitOpByte(OP_INVOKE, name)
		p.emitByte(argc)
	default:
		p.emitOpByte(OP_GET_PROPERTY, name)
	}
}

func (p *parser) namedVariable(name token.Token, canAssign bool) {
	var getOp, setOp OpCode
	arg := resolveLocal(p, p.cur, name)
	if arg != -1 {
		getOp, setOp = OP_GET_LOCAL, OP_SET_LOCAL
	} else if arg = resolveUpvalue(p, p.cur, name); arg != -1 {
		getOp, setOp = OP_GET_UPVALUE, OP_SET_UPVALUE
	} else {
		arg = int(p.identifierConstant(name))
		getOp, setOp = OP_GET_GLOBAL, OP_SET_GLOBAL
	}

	if canAssign && p.match(token.EQ) {
		p.expression()
		p.emitOpByte(setOp, byte(arg))
	} else {
		p.emitOpByte(getOp, byte(arg))
	}
}

func (p *parser) variable(canAssign bool) { p.namedVariable(p.previous, canAssign) }

func (p *parser) this_(_ bool) {
	if p.class == nil {
		p.error("Can't use 'this' outside of a class")
		return
	}
	p.namedVariable(p.previous, false)
}

// ---- statements ----

func (p *parser) declaration() {
	switch {
	case p.match(token.CLASS):
		p.classDeclaration()
	case p.match(token.FUN):
		p.funDeclaration()
	case p.match(token.VAR):
		p.varDeclaration()
	default:
		p.statement()
	}
	if p.panicMode {
		p.synchronize()
	}
}

func (p *parser) statement() {
	switch {
	case p.match(token.PRINT):
		p.printStatement()
	case p.match(token.FOR):
		p.forStatement()
	case p.match(token.IF):
		p.ifStatement()
	case p.match(token.RETURN):
		p.returnStatement()
	case p.match(token.WHILE):
		p.whileStatement()
	case p.match(token.LBRACE):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.expressionStatement()
	}
}

func (p *parser) block() {
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		p.declaration()
	}
	p.consume(token.RBRACE, "Expect '}' after block")
}

func (p *parser) varDeclaration() {
	global := p.parseVariable("Expect variable name")
	if p.match(token.EQ) {
		p.expression()
	} else {
		p.emitOp(OP_NIL)
	}
	p.consume(token.SEMI, "Expect ';' after variable declaration")
	p.defineVariable(global)
}

func (p *parser) expressionStatement() {
	p.expression()
	p.consume(token.SEMI, "Expect ';' after expression")
	p.emitOp(OP_POP)
}

func (p *parser) printStatement() {
	p.expression()
	p.consume(token.SEMI, "Expect ';' after value")
	p.emitOp(OP_PRINT)
}

func (p *parser) ifStatement() {
	p.consume(token.LPAREN, "Expect '(' after 'if'")
	p.expression()
	p.consume(token.RPAREN, "Expect ')' after condition")

	thenJump := p.emitJump(OP_JUMP_IF_FALSE)
	p.emitOp(OP_POP)
	p.statement()

	elseJump := p.emitJump(OP_JUMP)
	p.patchJump(thenJump)
	p.emitOp(OP_POP)

	if p.match(token.ELSE) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *parser) whileStatement() {
	loopStart := len(p.currentChunk().Code)
	p.consume(token.LPAREN, "Expect '(' after 'while'")
	p.expression()
	p.consume(token.RPAREN, "Expect ')' after condition")

	exitJump := p.emitJump(OP_JUMP_IF_FALSE)
	p.emitOp(OP_POP)
	p.statement()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emitOp(OP_POP)
}

// forStatement desugars `for (init; cond; incr) body` into a while loop in
// a single pass: the increment clause is parsed before the body (as must be
// done in a one-pass compiler with no AST to reorder), emitted with a
// forward jump around it so control flows init -> cond -> body -> incr ->
// cond -> ... on each iteration.
func (p *parser) forStatement() {
	p.beginScope()
	p.consume(token.LPAREN, "Expect '(' after 'for'")

	switch {
	case p.match(token.SEMI):
		// no initializer
	case p.match(token.VAR):
		p.varDeclaration()
	default:
		p.expressionStatement()
	}

	loopStart := len(p.currentChunk().Code)
	exitJump := -1
	if !p.match(token.SEMI) {
		p.expression()
		p.consume(token.SEMI, "Expect ';' after loop condition")
		exitJump = p.emitJump(OP_JUMP_IF_FALSE)
		p.emitOp(OP_POP)
	}

	if !p.match(token.RPAREN) {
		bodyJump := p.emitJump(OP_JUMP)
		incrStart := len(p.currentChunk().Code)
		p.expression()
		p.emitOp(OP_POP)
		p.consume(token.RPAREN, "Expect ')' after for clauses")

		p.emitLoop(loopStart)
		loopStart = incrStart
		p.patchJump(bodyJump)
	}

	p.statement()
	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emitOp(OP_POP)
	}

	p.endScope()
}

func (p *parser) returnStatement() {
	if p.cur.fnType == TypeScript {
		p.error("Can't return from top-level code")
	}
	if p.match(token.SEMI) {
		p.emitReturn()
		return
	}
	if p.cur.fnType == TypeInitializer {
		p.error("Can't return a value from an initializer")
	}
	p.expression()
	p.consume(token.SEMI, "Expect ';' after return value")
	p.emitOp(OP_RETURN)
}

// ---- functions, methods, classes ----

func (p *parser) function(fnType FunctionType) {
	name := string(p.previous.Lexeme)
	p.pushFunc(fnType, name)
	p.beginScope()

	p.consume(token.LPAREN, "Expect '(' after function name")
	if !p.check(token.RPAREN) {
		for {
			p.cur.proto.Arity++
			if p.cur.proto.Arity > 255 {
				p.errorAtCurrent("Can't have more than 255 parameters")
			}
			constant := p.parseVariable("Expect parameter name")
			p.defineVariable(constant)
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RPAREN, "Expect ')' after parameters")
	p.consume(token.LBRACE, "Expect '{' before function body")
	p.block()

	fn := p.popFunc()

	idx := p.makeConstant(fn)
	p.emitOpByte(OP_CLOSURE, idx)
	for _, uv := range fn.Upvalues {
		b := byte(0)
		if uv.IsLocal {
			b = 1
		}
		p.emitByte(b)
		p.emitByte(uv.Index)
	}
}

func (p *parser) funDeclaration() {
	global := p.parseVariable("Expect function name")
	p.markInitialized()
	p.function(TypeFunction)
	p.defineVariable(global)
}

func (p *parser) method() {
	p.consume(token.IDENT, "Expect method name")
	name := p.previous
	constant := p.identifierConstant(name)

	fnType := TypeMethod
	if string(name.Lexeme) == "init" {
		fnType = TypeInitializer
	}
	p.function(fnType)
	p.emitOpByte(OP_METHOD, constant)
}

func (p *parser) classDeclaration() {
	p.consume(token.IDENT, "Expect class name")
	nameTok := p.previous
	nameConstant := p.identifierConstant(nameTok)
	p.declareVariable()

	p.emitOpByte(OP_CLASS, nameConstant)
	p.defineVariable(nameConstant)

	cls := &classState{enclosing: p.class}
	p.class = cls

	p.namedVariable(nameTok, false)
	p.consume(token.LBRACE, "Expect '{' before class body")
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		p.method()
	}
	p.consume(token.RBRACE, "Expect '}' after class body")
	p.emitOp(OP_POP)

	p.class = p.class.enclosing
}
