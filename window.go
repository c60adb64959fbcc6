package vocana

import "math"

// hannWindow returns the peak-1 periodic ("DFT-even") root-Hann window
// of length n, used as both the analysis window (stft.go's Forward)
// and the synthesis window (stft.go's Inverse):
//
//	w[i] = sqrt(0.5 * (1 - cos(2*pi*i / n)))
//
// The periodic form is required rather than the symmetric
// (n-1-denominator) form: the symmetric window is zero at both
// endpoints and does not satisfy constant-overlap-add at 50% hop.
//
// Taking the square root of the Hann window, rather than using the
// plain Hann window directly, is what makes spec invariant #1 hold:
// stft.go's Inverse overlap-adds ISTFT output weighted by this same
// window and normalizes by the accumulated sum of its square,
// sum_t w[n-t*N_hop]^2. Squaring a root-Hann window recovers the
// plain Hann window, and the plain periodic Hann window satisfies the
// classic identity w[n] + w[n+N/2] == 1 for all n, so
// sum_t w[n-t*N_hop]^2 is exactly 1 over the interior at 50% hop — the
// constant invariant #1 requires to within 1e-5. The plain
// (non-rooted) Hann window satisfies that identity for itself, not for
// its square, so using it as both analysis and synthesis window would
// make the accumulator vary between 0.5 and 1.0 instead of holding
// constant.
func hannWindow(n int) []float64 {
	if n <= 1 {
		return []float64{1.0}
	}
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		w[i] = math.Sqrt(0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n))))
	}
	return w
}
