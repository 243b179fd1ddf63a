//go:build !unix

package heap

// NewMmap falls back to the runtime heap where anonymous mappings are not
// available.
func NewMmap() Heap { return Go{} }
