package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateDigitCode returns n random ASCII digits. Leading zeros are
// kept, so the result is always exactly n characters long
func GenerateDigitCode(n int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < n; i++ {
		max.Mul(max, big.NewInt(10))
	}

	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%0*d", n, v), nil
}
