package models

// SetSlugSuffix swaps the slug suffix generator and returns a func restoring it.
func SetSlugSuffix(next func() string) (restore func()) {
	prev := slugSuffix
	slugSuffix = next
	return func() { slugSuffix = prev }
}
