// Package strata is a reactive store library: named bundles of state,
// derived values, and actions, managed through an explicit
// observer/subscription runtime (pkg/reactive).
//
// Stores are declared once with DefineStore and bound to a Registry:
//
//	type CounterState struct {
//	    Count int    `json:"count"`
//	    Name  string `json:"name"`
//	}
//
//	var Counter = strata.DefineStore("counter", func() CounterState {
//	    return CounterState{Name: "eduardo"}
//	})
//
//	reg := strata.New()
//	counter := Counter.MustUse(reg)
//
//	counter.Update(func(s *CounterState) { s.Count++ })
//	counter.Subscribe(func(m strata.Mutation, s CounterState) {
//	    log.Printf("%s v%d: %+v", m.StoreID, m.Version, s)
//	})
//
// Every mutation (direct updates, grouped patches, JSON deep-merges,
// resets) is published to subscribers with metadata: store id, mutation
// type, version. Actions wrap named operations and expose before/after/
// error hooks to observers. Plugins extend every store in a registry;
// built-ins cover persistence, Prometheus metrics, and OpenTelemetry
// action tracing. Registry state dehydrates to JSON for server rendering
// and hydrates back on the other side.
package strata
