package jwtauth

// StaticResolver resolves every kid to the same fixed key — the common
// case of a single long-lived signing key rather than a Rotator.
type StaticResolver struct {
	Alg Algorithm
	Key any
}

func (s StaticResolver) Algorithm() Algorithm { return s.Alg }

func (s StaticResolver) ResolveKey(kid string) (any, error) { return s.Key, nil }
