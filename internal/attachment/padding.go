package attachment

import (
	"io"
	"math"
)

const minPaddedSize = 541

// PaddedSize returns the length an attachment of n bytes is padded to: the
// next power of 1.05, and never less than 541 bytes.
func PaddedSize(n int64) int64 {
	padded := int64(math.Floor(math.Pow(1.05, math.Ceil(math.Log(float64(n))/math.Log(1.05)))))
	if padded < n {
		padded = n
	}
	return max(minPaddedSize, padded)
}

// NewPaddingReader returns a reader yielding exactly length bytes of r
// followed by zeros up to PaddedSize(length).
func NewPaddingReader(r io.Reader, length int64) io.Reader {
	return io.MultiReader(
		newExactReader(r, length),
		io.LimitReader(zeros{}, PaddedSize(length)-length),
	)
}

// exactReader yields exactly length bytes of a source. It fails when the
// source ends early and ignores anything past length.
type exactReader struct {
	r         io.Reader
	remaining int64
}

func newExactReader(r io.Reader, length int64) *exactReader {
	return &exactReader{r: io.LimitReader(r, length), remaining: length}
}

func (e *exactReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	e.remaining -= int64(n)
	if err == io.EOF && e.remaining > 0 {
		return n, io.ErrUnexpectedEOF
	}
	return n, err
}

type zeros struct{}

func (zeros) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}
