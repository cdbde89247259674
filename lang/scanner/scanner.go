// Package scanner implements a lazy, non-allocating tokenizer for talon
// source text. It produces a finite sequence of lang/token.Token values,
// each carrying a lexeme that is a slice view into the original source
// buffer rather than a copy.
package scanner

import (
	"unicode"
	"unicode/utf8"

	"github.com/mna/talon/lang/token"
)

// Scanner tokenizes a single source buffer for the compiler to consume. It
// is single-pass and non-restartable: once a Scanner has been initialised
// with Init, tokens must be consumed strictly in order via Next.
type Scanner struct {
	src  []byte
	err  func(line int, msg string)
	cur  rune // current character, -1 at EOF
	off  int  // byte offset of cur
	roff int  // byte offset following cur
	line int
}

// Init (re)initialises the scanner to tokenize src, reporting lexical
// errors (unterminated strings, illegal characters) to errHandler.
// errHandler may be nil, in which case such errors are silently folded into
// a TOKEN_ERROR-shaped token.ILLEGAL (the caller is expected to inspect the
// returned tokens instead).
func (s *Scanner) Init(src []byte, errHandler func(line int, msg string)) {
	s.src = src
	s.err = errHandler
	s.cur = ' '
	s.off = 0
	s.roff = 0
	s.line = 1
	s.advance()
}

func (s *Scanner) error(msg string) {
	if s.err != nil {
		s.err(s.line, msg)
	}
}

// peek returns the byte following the current character without advancing
// the scanner. It returns 0 at EOF.
func (s *Scanner) peek() byte {
	if s.roff < len(s.src) {
		return s.src[s.roff]
	}
	return 0
}

// advance reads the next rune into s.cur; s.cur == -1 means end of input.
func (s *Scanner) advance() {
	if s.cur == '\n' {
		s.line++
	}
	if s.roff >= len(s.src) {
		s.off = len(s.src)
		s.cur = -1
		return
	}

	s.off = s.roff
	r, w := rune(s.src[s.roff]), 1
	if r >= utf8.RuneSelf {
		r, w = utf8.DecodeRune(s.src[s.roff:])
	}
	s.roff += w
	s.cur = r
}

// advanceIf advances and returns true if the current character equals c,
// otherwise it leaves the scanner untouched and returns false.
func (s *Scanner) advanceIf(c byte) bool {
	if s.cur == rune(c) {
		s.advance()
		return true
	}
	return false
}

func (s *Scanner) skipWhitespaceAndComments() {
	for {
		switch s.cur {
		case ' ', '\t', '\r', '\n':
			s.advance()
		case '/':
			if s.peek() != '/' {
				return
			}
			for s.cur != '\n' && s.cur != -1 {
				s.advance()
			}
		default:
			return
		}
	}
}

// Next returns the next token in the source. Once EOF has been reached,
// Next returns token.EOF indefinitely.
func (s *Scanner) Next() token.Token {
	s.skipWhitespaceAndComments()

	start := s.off
	line := s.line

	mk := func(kind token.Kind) token.Token {
		return token.Token{Kind: kind, Lexeme: s.src[start:s.off], Line: line}
	}

	switch cur := s.cur; {
	case isAlpha(cur):
		for isAlpha(s.cur) || isDigit(s.cur) {
			s.advance()
		}
		lexeme := s.src[start:s.off]
		return token.Token{Kind: token.Lookup(string(lexeme)), Lexeme: lexeme, Line: line}

	case isDigit(cur):
		return s.number(start, line)

	default:
		s.advance() // always make progress
		switch cur {
		case '(':
			return mk(token.LPAREN)
		case ')':
			return mk(token.RPAREN)
		case '{':
			return mk(token.LBRACE)
		case '}':
			return mk(token.RBRACE)
		case ',':
			return mk(token.COMMA)
		case '.':
			return mk(token.DOT)
		case '-':
			return mk(token.MINUS)
		case '+':
			return mk(token.PLUS)
		case ';':
			return mk(token.SEMI)
		case '*':
			return mk(token.STAR)
		case '/':
			return mk(token.SLASH)
		case '!':
			if s.advanceIf('=') {
				return mk(token.BANG_EQ)
			}
			return mk(token.BANG)
		case '=':
			if s.advanceIf('=') {
				return mk(token.EQ_EQ)
			}
			return mk(token.EQ)
		case '<':
			if s.advanceIf('=') {
				return mk(token.LE)
			}
			return mk(token.LT)
		case '>':
			if s.advanceIf('=') {
				return mk(token.GE)
			}
			return mk(token.GT)
		case '"':
			return s.string(start, line)
		case -1:
			return token.Token{Kind: token.EOF, Line: line}
		default:
			s.error("unexpected character")
			return token.Token{Kind: token.ILLEGAL, Lexeme: s.src[start:s.off], Line: line}
		}
	}
}

func (s *Scanner) string(start, line int) token.Token {
	for s.cur != '"' && s.cur != -1 {
		s.advance()
	}
	if s.cur == -1 {
		s.error("unterminated string")
		return token.Token{Kind: token.ILLEGAL, Lexeme: s.src[start:s.off], Line: line}
	}
	s.advance() // closing quote
	return token.Token{Kind: token.STRING, Lexeme: s.src[start:s.off], Line: line}
}

func (s *Scanner) number(start, line int) token.Token {
	for isDigit(s.cur) {
		s.advance()
	}
	if s.cur == '.' && isDigit(rune(s.peek())) {
		s.advance() // consume '.'
		for isDigit(s.cur) {
			s.advance()
		}
	}
	return token.Token{Kind: token.NUMBER, Lexeme: s.src[start:s.off], Line: line}
}

func isAlpha(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
