package scanner

import (
	"testing"

	"github.com/mna/talon/lang/token"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) ([]token.Token, []string) {
	t.Helper()

	var errs []string
	var s Scanner
	s.Init([]byte(src), func(line int, msg string) {
		errs = append(errs, msg)
	})

	var toks []token.Token
	for {
		tok := s.Next()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return toks, errs
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func TestScanPunctuationAndOperators(t *testing.T) {
	toks, errs := scanAll(t, "(){};,.-+*/! != = == > >= < <=")
	require.Empty(t, errs)
	require.Equal(t, []token.Kind{
		token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE, token.SEMI,
		token.COMMA, token.DOT, token.MINUS, token.PLUS, token.STAR, token.SLASH,
		token.BANG, token.BANG_EQ, token.EQ, token.EQ_EQ, token.GT, token.GE,
		token.LT, token.LE, token.EOF,
	}, kinds(toks))
}

func TestScanKeywordsAndIdentifiers(t *testing.T) {
	toks, errs := scanAll(t, "var x = orchid; fun f() {}")
	require.Empty(t, errs)
	require.Equal(t, []token.Kind{
		token.VAR, token.IDENT, token.EQ, token.IDENT, token.SEMI,
		token.FUN, token.IDENT, token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE,
		token.EOF,
	}, kinds(toks))
	require.Equal(t, "orchid", toks[3].String())
}

func TestScanNumbers(t *testing.T) {
	toks, errs := scanAll(t, "123 3.14 0.5")
	require.Empty(t, errs)
	require.Equal(t, []string{"123", "3.14", "0.5"}, []string{toks[0].String(), toks[1].String(), toks[2].String()})
}

func TestScanNumberTrailingDotIsNotConsumed(t *testing.T) {
	// "1." has no digit following the dot, so the dot is a separate token
	// (matches clox: a trailing '.' is never part of the number).
	toks, _ := scanAll(t, "1.")
	require.Equal(t, []token.Kind{token.NUMBER, token.DOT, token.EOF}, kinds(toks))
}

func TestScanString(t *testing.T) {
	toks, errs := scanAll(t, `"hello there"`)
	require.Empty(t, errs)
	require.Equal(t, token.STRING, toks[0].Kind)
	require.Equal(t, `"hello there"`, toks[0].String())
}

func TestScanUnterminatedString(t *testing.T) {
	toks, errs := scanAll(t, `"hello`)
	require.Equal(t, []string{"unterminated string"}, errs)
	require.Equal(t, token.ILLEGAL, toks[0].Kind)
}

func TestScanLineComments(t *testing.T) {
	toks, errs := scanAll(t, "1 // a comment\n2")
	require.Empty(t, errs)
	require.Equal(t, []token.Kind{token.NUMBER, token.NUMBER, token.EOF}, kinds(toks))
	require.Equal(t, 1, toks[0].Line)
	require.Equal(t, 2, toks[1].Line)
}

func TestScanEOFIsIdempotent(t *testing.T) {
	var s Scanner
	s.Init([]byte(""), nil)
	require.Equal(t, token.EOF, s.Next().Kind)
	require.Equal(t, token.EOF, s.Next().Kind)
	require.Equal(t, token.EOF, s.Next().Kind)
}

func TestScanIllegalCharacter(t *testing.T) {
	toks, errs := scanAll(t, "@")
	require.Equal(t, []string{"unexpected character"}, errs)
	require.Equal(t, token.ILLEGAL, toks[0].Kind)
}
