// Package dispatch serves HTTP requests with resolved handlers.
//
// A Dispatcher cleans the request path, resolves the request against a
// handler table, binds and validates the handler's arguments, calls the
// handler and writes its result through a view adapter. Requests whose
// arguments fail to bind or validate are answered with 400 and the
// collected field errors unless the handler takes *notice.Errors itself.
//
// Handlers may return nothing, a value, or a value and an error. The value
// may be a *view.Result, a string naming a view or "redirect:" target, or
// any other value, which is rendered by the default view bound as "result".
package dispatch
