package model

// BuildLookup indexes a fetched reference collection by key, for resolving
// bare foreign keys into displayable entities. The table is rebuilt from the
// current fetch every time; nothing is cached between requests.
func BuildLookup[K comparable, V any](items []V, key func(V) K) map[K]V {
	m := make(map[K]V, len(items))
	for _, item := range items {
		m[key(item)] = item
	}
	return m
}

// AssetLookup indexes assets by ID.
func AssetLookup(assets []Asset) map[int64]Asset {
	return BuildLookup(assets, func(a Asset) int64 { return a.ID })
}

// BaseLookup indexes bases by ID.
func BaseLookup(bases []Base) map[int64]Base {
	return BuildLookup(bases, func(b Base) int64 { return b.ID })
}
