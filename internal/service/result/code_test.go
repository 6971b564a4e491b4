package result

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAccessCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateAccessCode()
		require.NoError(t, err)
		assert.Len(t, code, codeLength)
		for _, c := range code {
			assert.True(t, strings.ContainsRune(codeAlphabet, c), "unexpected character %q", c)
		}
		seen[code] = true
	}
	// 100 codes from a 32^8 space colliding would indicate a broken generator.
	assert.Greater(t, len(seen), 95)
}

func TestGenerateAccessCodeAvoidsAmbiguousCharacters(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateAccessCode()
		require.NoError(t, err)
		assert.NotContains(t, code, "0")
		assert.NotContains(t, code, "O")
		assert.NotContains(t, code, "1")
		assert.NotContains(t, code, "I")
	}
}

func TestVerifyAccessCode(t *testing.T) {
	assert.True(t, VerifyAccessCode("ABCD2345", "ABCD2345"))
	assert.False(t, VerifyAccessCode("ABCD2345", "ABCD2346"))
	assert.False(t, VerifyAccessCode("ABCD234", "ABCD2345"))
	assert.False(t, VerifyAccessCode("", "ABCD2345"))
	assert.True(t, VerifyAccessCode("", ""))
}
