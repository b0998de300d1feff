package slice

// Map returns the results of applying fn to each element of s.
func Map[In, Out any](s []In, fn func(In) Out) []Out {
	out := make([]Out, len(s))
	for i, v := range s {
		out[i] = fn(v)
	}
	return out
}

// Sum adds up all elements of s.
func Sum[N ~int | ~int64](s []N) N {
	var total N
	for _, v := range s {
		total += v
	}
	return total
}
