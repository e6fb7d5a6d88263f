package cv

// Template is a named reference image plus its match policy
type Template struct {
	Name       string
	Path       string
	Confidence float64 // 0 means use the caller's default
	Region     *Region
}

// Builder methods

// InRegion sets the search region for the template
func (t Template) InRegion(left, top, width, height int) Template {
	region := NewRegion(left, top, width, height)
	t.Region = &region
	return t
}

// WithConfidence sets the matching threshold
func (t Template) WithConfidence(confidence float64) Template {
	t.Confidence = confidence
	return t
}
