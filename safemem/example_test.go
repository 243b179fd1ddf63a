package safemem_test

import (
	"fmt"

	"github.com/joshuapare/safememkit/safemem"
)

func Example() {
	a := safemem.New(nil)

	h, err := a.Allocate(40, 3)
	if err != nil {
		panic(err)
	}

	for sweep := 1; a.Valid(h); sweep++ {
		_ = a.CollectGarbage()
		fmt.Printf("sweep %d: valid=%t\n", sweep, a.Valid(h))
	}

	// Output:
	// sweep 1: valid=true
	// sweep 2: valid=true
	// sweep 3: valid=true
	// sweep 4: valid=false
}

func ExampleAllocator_Free() {
	a := safemem.New(nil)
	h, _ := a.Allocate(16, safemem.Forever)

	fmt.Println(a.Free(h))
	fmt.Println(a.Free(h))
	fmt.Println(a.Deref(h) == nil)

	// Output:
	// <nil>
	// safemem: invalid handle state
	// true
}

func ExampleAllocator_With() {
	a := safemem.New(nil)
	h, _ := a.AllocateN(4, 4, 0)

	_ = a.With(h, func(p []byte) error {
		copy(p, "safe")
		return nil
	})

	a.Lock()
	v, ok := a.Uint32At(h, 0)
	_, past := a.Uint32At(h, 4)
	a.Unlock()
	fmt.Printf("%#x %t %t\n", v, ok, past)

	// Output:
	// 0x65666173 true false
}
