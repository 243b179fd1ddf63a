package safemem

// counters are cumulative over the allocator's life and survive CollectAll.
type counters struct {
	allocCalls     int
	allocs         int
	allocFailures  int
	poisonEvents   int
	freeCalls      int
	frees          int
	freeErrors     int
	keepAlives     int
	sweeps         int
	collected      int
	teardowns      int
	tornDown       int
	releaseErrors  int
	bytesAllocated int64
	bytesFreed     int64
	bytesLive      int64
}

// Stats is a snapshot of allocator state and counters.
type Stats struct {
	// Current state
	Epoch     uint64 `json:"epoch"`
	Slots     int    `json:"slots"`
	Live      int    `json:"live"`
	Cursor    int    `json:"cursor"`
	Poisoned  bool   `json:"poisoned"`
	BytesLive int64  `json:"bytesLive"`

	// Cumulative counters
	AllocCalls     int   `json:"allocCalls"`     // Allocate calls
	Allocs         int   `json:"allocs"`         // successful allocations
	AllocFailures  int   `json:"allocFailures"`  // failed allocations, poisoned or not
	PoisonEvents   int   `json:"poisonEvents"`   // Healthy -> Poisoned transitions
	FreeCalls      int   `json:"freeCalls"`      // Free calls
	Frees          int   `json:"frees"`          // successful frees
	FreeErrors     int   `json:"freeErrors"`     // BadPointer / InvalidState frees
	KeepAlives     int   `json:"keepAlives"`     // successful lifetime renewals
	Sweeps         int   `json:"sweeps"`         // CollectGarbage passes
	Collected      int   `json:"collected"`      // allocations reclaimed by sweeps
	Teardowns      int   `json:"teardowns"`      // CollectAll calls
	TornDown       int   `json:"tornDown"`       // allocations released by CollectAll
	ReleaseErrors  int   `json:"releaseErrors"`  // heap release failures
	BytesAllocated int64 `json:"bytesAllocated"` // bytes handed out
	BytesFreed     int64 `json:"bytesFreed"`     // bytes returned to the heap

	// Table search counters, reset by CollectAll
	GrowEvents   int `json:"growEvents"`
	Scans        int `json:"scans"`
	SecondPasses int `json:"secondPasses"`
	SlotsVisited int `json:"slotsVisited"`
}

// Stats returns a consistent snapshot taken under the lock hook.
func (a *Allocator) Stats() Stats {
	a.lock.Lock()
	defer a.lock.Unlock()

	c := a.stats
	ts := a.table.Stats()
	return Stats{
		Epoch:     a.clock.Now(),
		Slots:     a.table.Len(),
		Live:      a.table.Live(),
		Cursor:    a.table.Cursor(),
		Poisoned:  a.poisoned.Load(),
		BytesLive: c.bytesLive,

		AllocCalls:     c.allocCalls,
		Allocs:         c.allocs,
		AllocFailures:  c.allocFailures,
		PoisonEvents:   c.poisonEvents,
		FreeCalls:      c.freeCalls,
		Frees:          c.frees,
		FreeErrors:     c.freeErrors,
		KeepAlives:     c.keepAlives,
		Sweeps:         c.sweeps,
		Collected:      c.collected,
		Teardowns:      c.teardowns,
		TornDown:       c.tornDown,
		ReleaseErrors:  c.releaseErrors,
		BytesAllocated: c.bytesAllocated,
		BytesFreed:     c.bytesFreed,

		GrowEvents:   ts.GrowEvents,
		Scans:        ts.Scans,
		SecondPasses: ts.SecondPasses,
		SlotsVisited: ts.SlotsVisited,
	}
}
