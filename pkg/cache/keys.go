package cache

// ExtentKeyOpts captures every input that changes a computed cutout extent.
// Two calls with equal options and equal source geometry share a cache entry.
type ExtentKeyOpts struct {
	SignalNets    []string
	ReferenceNets []string
	ExtentType    string
	Expansion     float64
	RoundCorners  bool
	GeometryHash  string // hash of the signal-net geometry the extent derives from
}

// Keyer generates cache keys for computed cutout extents.
// Implementations must be deterministic: equal inputs yield equal keys.
type Keyer interface {
	// ExtentKey keys a computed cutout extent polygon for a cell.
	ExtentKey(cell string, opts ExtentKeyOpts) string
}

// DefaultKeyer hashes all key components with SHA-256 under a short
// per-kind prefix.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// ExtentKey generates a key for a cutout extent.
func (k *DefaultKeyer) ExtentKey(cell string, opts ExtentKeyOpts) string {
	return hashKey("extent", cell, opts)
}

// Ensure DefaultKeyer implements Keyer.
var _ Keyer = (*DefaultKeyer)(nil)
