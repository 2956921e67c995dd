package hmm

import "sort"

// CanonicalOrder returns perm such that perm[newIndex] = oldIndex, ordering states by
// ascending mean of the first feature, then ascending variance of the first feature,
// then original index.
func (m *Model) CanonicalOrder() []int {
	perm := make([]int, m.K)
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		i, j := perm[a], perm[b]
		if m.Means[i][0] != m.Means[j][0] {
			return m.Means[i][0] < m.Means[j][0]
		}
		if m.Vars[i][0] != m.Vars[j][0] {
			return m.Vars[i][0] < m.Vars[j][0]
		}
		return i < j
	})
	return perm
}

// Permute returns a copy of the model with states reordered by perm (perm[new] = old).
func (m *Model) Permute(perm []int) *Model {
	out := newModel(m.K, m.D)
	for n, o := range perm {
		out.Pi[n] = m.Pi[o]
		copy(out.Means[n], m.Means[o])
		copy(out.Vars[n], m.Vars[o])
		for n2, o2 := range perm {
			out.A[n][n2] = m.A[o][o2]
		}
	}
	return out
}

// Relabel maps a path through perm (perm[new] = old) into the new state indices.
func Relabel(path []int, perm []int) []int {
	inv := make([]int, len(perm))
	for n, o := range perm {
		inv[o] = n
	}
	out := make([]int, len(path))
	for t, s := range path {
		out[t] = inv[s]
	}
	return out
}

// Canonicalize reorders the model in place into canonical state order and returns
// the permutation applied.
func (m *Model) Canonicalize() []int {
	perm := m.CanonicalOrder()
	*m = *m.Permute(perm)
	return perm
}
