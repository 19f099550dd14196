package domain

// FeatureRecord holds the feature vector computed for one token at one
// instant. Window-scoped values are keyed "<name>_<window>m".
type FeatureRecord struct {
	Mint       string             // token mint address
	ComputedAt int64              // Unix timestamp in milliseconds
	Values     map[string]float64 // feature name -> value
}

// Get returns the named feature, or 0 when absent.
func (f *FeatureRecord) Get(name string) float64 {
	if f == nil || f.Values == nil {
		return 0
	}
	return f.Values[name]
}
