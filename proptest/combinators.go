package proptest

// OneOf returns one of the given values at random. Panics when called
// with no values.
func OneOf[T any](g *Generator, values ...T) T {
	if len(values) == 0 {
		panic("proptest: OneOf needs at least one value")
	}
	return values[g.Intn(len(values))]
}

// OneOfFunc picks one of the given generator functions at random and
// runs it. Panics when called with no functions.
func OneOfFunc[T any](g *Generator, fns ...func(*Generator) T) T {
	if len(fns) == 0 {
		panic("proptest: OneOfFunc needs at least one function")
	}
	return fns[g.Intn(len(fns))](g)
}

// Pick returns a random element of a non-empty slice.
func Pick[T any](g *Generator, s []T) T {
	if len(s) == 0 {
		panic("proptest: Pick on an empty slice")
	}
	return s[g.Intn(len(s))]
}

// Slice builds a slice of length [0, maxLen] from the element generator.
func Slice[T any](g *Generator, maxLen int, gen func(*Generator) T) []T {
	if maxLen <= 0 {
		return nil
	}
	out := make([]T, g.Intn(maxLen+1))
	for i := range out {
		out[i] = gen(g)
	}
	return out
}

// Shuffle returns a shuffled copy of s; the input is left alone.
func Shuffle[T any](g *Generator, s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	g.rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
