package authcore

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// CodeLength is the number of digits in a verification code.
const CodeLength = 6

var codeSpace = big.NewInt(1000000)

// digitCodeGenerator draws a number uniformly from [0, 10^6) and zero-pads
// it, so 000042 is as likely as 942042.
type digitCodeGenerator struct{}

// NewCodeGenerator returns the default crypto/rand backed generator.
func NewCodeGenerator() CodeGenerator {
	return digitCodeGenerator{}
}

func (digitCodeGenerator) Generate() string {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		// crypto/rand only fails when the platform entropy source is
		// broken, same contract as uuid.New.
		panic(fmt.Sprintf("authcore: entropy source unavailable: %v", err))
	}
	return fmt.Sprintf("%06d", n.Int64())
}
