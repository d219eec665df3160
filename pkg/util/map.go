package util

// Map applies f to every element of s, passing the element index.
func Map[A any, B any](s []A, f func(A, uint64) B) []B {
	out := make([]B, len(s))
	for i, a := range s {
		out[i] = f(a, uint64(i))
	}
	return out
}
