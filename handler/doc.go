// Package handler builds the routing table and resolves requests to
// handler methods.
//
// Controllers group handler methods under a base path. The [Builder]
// compiles every method's mapping key once at start-up into an immutable
// [Table]. Resolution is then a pure read of the table in two steps: a
// [CompositeControllerResolver] narrows the controllers that can serve the
// request path, and the [CompositeHandlerResolver] tests the mapping keys
// of their methods and picks the preferred match: the highest priority,
// then the earliest registration.
//
// Mappings that no request could tell apart are reported when the table is
// built, as a warning or, in strict mode, as an [AmbiguityError].
package handler
