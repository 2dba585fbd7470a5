// Package adapter is a registry of pluggable components.
//
// Every adapter implements one capability (a [Kind]): value conversion,
// parameter binding, validation, view rendering or data loading. Adapters
// are registered once at start-up together with the type they handle and a
// weight, and the registry hands them out ordered by ascending weight. Equal
// weights keep registration order, so the order is total and the same for
// listing and for first-match selection.
//
//	b := adapter.NewBuilder()
//	b.Capability(adapter.Converter, reflect.TypeFor[Converter]())
//	b.Register(adapter.Registration{
//		Kind:     adapter.Converter,
//		Target:   reflect.TypeFor[time.Time](),
//		Weight:   10,
//		Instance: timeConverter{},
//	})
//	reg, err := b.Build()
//
//	d, err := reg.Find(adapter.Converter, reflect.TypeFor[time.Time]())
//
// The sorted list of each kind is computed on first use and cached; when
// several goroutines race on the first lookup, the first stored list wins.
package adapter
