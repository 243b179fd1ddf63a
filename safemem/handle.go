package safemem

import (
	"fmt"
	"math"

	"github.com/joshuapare/safememkit/safemem/gen"
)

// Handle refers to one allocation. It is a small value, freely copyable, and
// owns nothing: copies become stale together when the allocation is freed.
type Handle struct {
	index int
	size  int
	gen   gen.Generation
}

// InvalidHandle is returned by a failed Allocate. It never validates.
var InvalidHandle = Handle{index: math.MaxInt, size: 0, gen: gen.Max}

// Index returns the slot number.
func (h Handle) Index() int { return h.index }

// Size returns the byte length requested at allocation.
func (h Handle) Size() int { return h.size }

// Generation returns the stamp issued at allocation.
func (h Handle) Generation() gen.Generation { return h.gen }

// IsInvalid reports whether h is the failure sentinel.
func (h Handle) IsInvalid() bool { return h == InvalidHandle }

func (h Handle) String() string {
	if h.IsInvalid() {
		return "handle(invalid)"
	}
	return fmt.Sprintf("handle(#%d, %dB, gen %s)", h.index, h.size, h.gen)
}
