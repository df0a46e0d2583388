package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenString(t *testing.T) {
	for tok := Token(0); tok < maxToken; tok++ {
		require.NotEmpty(t, tok.String(), "token %d missing a string representation", tok)
	}
}

func TestKeywordsRoundTrip(t *testing.T) {
	for spelling, tok := range Keywords {
		require.True(t, tok.IsKeyword())
		require.Equal(t, spelling, tok.String())
	}
}

func TestGoStringQuotesPunctAndKeywords(t *testing.T) {
	require.Equal(t, "'+'", PLUS.GoString())
	require.Equal(t, "'struct'", STRUCT.GoString())
	require.Equal(t, "identifier", IDENT.GoString())
}

func TestBinaryPrecedence(t *testing.T) {
	require.Zero(t, COMMA.BinaryPrecedence())
	require.Less(t, OROR.BinaryPrecedence(), ANDAND.BinaryPrecedence())
	require.Less(t, PLUS.BinaryPrecedence(), STAR.BinaryPrecedence())
}

func TestIsAssignOp(t *testing.T) {
	require.True(t, ASSIGN.IsAssignOp())
	require.True(t, PLUSEQ.IsAssignOp())
	require.False(t, EQEQ.IsAssignOp())
}
