package exchange

// Markets is an adapter's market registry: canonical symbol to the native
// market identifier the exchange expects in requests. It has exactly one
// writer, the owning adapter's LoadMarkets.
type Markets map[Symbol]string

// Empty reports whether the registry has no entries yet.
func (m Markets) Empty() bool { return len(m) == 0 }
