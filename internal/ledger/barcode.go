package ledger

import "math/rand/v2"

// CodeSource supplies barcode values for items. There is no camera;
// the value is an opaque string the ledger stores verbatim.
type CodeSource interface {
	Capture() string
}

// StubCodeSource fabricates a 13-digit code per capture, standing in
// for a real scanner.
type StubCodeSource struct{}

// Capture returns a fresh fabricated code.
func (StubCodeSource) Capture() string {
	digits := make([]byte, 13)
	for i := range digits {
		digits[i] = '0' + byte(rand.IntN(10))
	}
	return string(digits)
}
