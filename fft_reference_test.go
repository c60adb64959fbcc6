package vocana

import (
	"math"
	"math/cmplx"
)

// referenceFFT is the teacher's original iterative Cooley-Tukey
// radix-2 decimation-in-time transform, kept as an independent oracle
// to cross-check Plan against in tests. len(x) must be a power of 2.
func referenceFFT(x []complex128) []complex128 {
	n := len(x)
	if n == 0 {
		return nil
	}
	if !isPowerOfTwo(n) {
		panic("reference_fft: length must be a power of 2")
	}

	out := make([]complex128, n)
	copy(out, x)
	referenceBitReverse(out)

	for s := 1; s <= int(math.Log2(float64(n))); s++ {
		m := 1 << s
		wm := cmplx.Exp(complex(0, -2*math.Pi/float64(m)))

		for k := 0; k < n; k += m {
			w := complex(1, 0)
			for j := 0; j < m/2; j++ {
				t := w * out[k+j+m/2]
				u := out[k+j]
				out[k+j] = u + t
				out[k+j+m/2] = u - t
				w *= wm
			}
		}
	}
	return out
}

// referenceIFFT is the teacher's conjugate-FFT-conjugate-scale inverse,
// kept as an oracle alongside referenceFFT.
func referenceIFFT(x []complex128) []complex128 {
	n := len(x)
	if n == 0 {
		return nil
	}
	conj := make([]complex128, n)
	for i, v := range x {
		conj[i] = cmplx.Conj(v)
	}
	result := referenceFFT(conj)
	scale := complex(float64(n), 0)
	for i := range result {
		result[i] = cmplx.Conj(result[i]) / scale
	}
	return result
}

func referenceBitReverse(x []complex128) {
	n := len(x)
	bits := int(math.Log2(float64(n)))
	for i := 0; i < n; i++ {
		j := referenceReverseBits(i, bits)
		if j > i {
			x[i], x[j] = x[j], x[i]
		}
	}
}

func referenceReverseBits(v, bits int) int {
	r := 0
	for i := 0; i < bits; i++ {
		r = (r << 1) | (v & 1)
		v >>= 1
	}
	return r
}
