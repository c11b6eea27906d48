package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDigitCode_Format(t *testing.T) {
	t.Parallel()

	for i := 0; i < 200; i++ {
		code, err := GenerateDigitCode(6)
		require.NoError(t, err)
		require.Len(t, code, 6)

		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9', "code %q contains non-digit %q", code, r)
		}
	}
}

func TestGenerateDigitCode_Lengths(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 4, 6, 8} {
		code, err := GenerateDigitCode(n)
		require.NoError(t, err)
		assert.Len(t, code, n)
	}
}

func TestGenerateDigitCode_NotConstant(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := GenerateDigitCode(6)
		require.NoError(t, err)
		seen[code] = true
	}

	// 50 draws from a million values colliding down to one would mean the
	// generator is broken
	assert.Greater(t, len(seen), 1)
}
