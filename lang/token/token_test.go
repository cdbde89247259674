package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindString(t *testing.T) {
	for k := ILLEGAL; k < maxKind; k++ {
		if k.String() == "" {
			t.Errorf("missing string representation of kind %d", k)
		}
	}
}

func TestLookup(t *testing.T) {
	for kw, kind := range keywords {
		require.Equal(t, kind, Lookup(kw))
	}
	require.Equal(t, IDENT, Lookup("notAKeyword"))
	require.Equal(t, IDENT, Lookup(""))
}

func TestTokenString(t *testing.T) {
	tok := Token{Kind: IDENT, Lexeme: []byte("counter"), Line: 3}
	require.Equal(t, "counter", tok.String())

	tok = Token{Kind: EOF, Line: 3}
	require.Equal(t, "end of file", tok.String())
}
