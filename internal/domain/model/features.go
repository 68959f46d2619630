package model

// FeatureValue is one named model input. Valid=false is the explicit missing marker;
// Value is zero in that case and must not be read.
type FeatureValue struct {
	Name  string
	Value float64
	Valid bool
}

// FeatureVector is the ordered feature set of one player key.
type FeatureVector struct {
	PlayerID   string
	Domain     Domain
	EvalSeason int
	Version    string
	Values     []FeatureValue

	index map[string]int
}

// NewFeatureVector builds a vector and its name index.
func NewFeatureVector(key PlayerKey, evalSeason int, version string, values []FeatureValue) FeatureVector {
	idx := make(map[string]int, len(values))
	for i, v := range values {
		idx[v.Name] = i
	}
	return FeatureVector{
		PlayerID:   key.PlayerID,
		Domain:     key.Domain,
		EvalSeason: evalSeason,
		Version:    version,
		Values:     values,
		index:      idx,
	}
}

// Get returns the feature value and whether it is present and valid.
func (v FeatureVector) Get(name string) (float64, bool) {
	if v.index != nil {
		i, ok := v.index[name]
		if !ok {
			return 0, false
		}
		return v.Values[i].Value, v.Values[i].Valid
	}
	for _, fv := range v.Values {
		if fv.Name == name {
			return fv.Value, fv.Valid
		}
	}
	return 0, false
}

// NullCount returns how many declared features are missing.
func (v FeatureVector) NullCount() int {
	n := 0
	for _, fv := range v.Values {
		if !fv.Valid {
			n++
		}
	}
	return n
}
