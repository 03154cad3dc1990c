package lru

// EvictReason explains why an entry was removed by the cache itself.
type EvictReason int

const (
	// EvictBudget: removed while making room after Set.
	EvictBudget EvictReason = iota
	// EvictShrink: removed because SetBudget lowered the budget.
	EvictShrink
)

// String returns a stable, lower-case name for the reason.
func (r EvictReason) String() string {
	switch r {
	case EvictShrink:
		return "shrink"
	default:
		return "budget"
	}
}

// Metrics exposes cache-level observability hooks.
// A cache calls them synchronously from the goroutine doing the operation.
type Metrics interface {
	Hit()
	Miss()
	// Reject is called when Set drops an entry whose cost alone exceeds the budget.
	Reject()
	Evict(reason EvictReason)
	Size(entries int, cost float64)
}

// NoopMetrics is a drop-in Metrics implementation that does nothing.
// It is the default when no observability backend is configured.
type NoopMetrics struct{}

func (NoopMetrics) Hit()                           {}
func (NoopMetrics) Miss()                          {}
func (NoopMetrics) Reject()                        {}
func (NoopMetrics) Evict(EvictReason)              {}
func (NoopMetrics) Size(entries int, cost float64) {}

var _ Metrics = NoopMetrics{}
