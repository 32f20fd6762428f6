package processor

import "github.com/nerrad567/gray-logic-controller/internal/statuscache"

// changed reports whether the in-flight event differs from the committed one.
// Without a cache, or for a sensor with no committed event, it is a change.
func changed(ec *statuscache.EventContext) bool {
	cache := ec.Cache()
	if cache == nil {
		return true
	}
	prev, ok := cache.Lookup(ec.Event().SourceID())
	return !ok || !prev.Equal(ec.Event())
}
