package model

// Float returns a pointer to v. Used to fill optional indicator fields.
func Float(v float64) *float64 {
	return &v
}
