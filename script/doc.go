// Package script evaluates boolean expressions over request parameters.
//
// Two dialects are available and can be used interchangeably:
//
//   - cel: the Common Expression Language (github.com/google/cel-go).
//     This is the default dialect.
//   - lua: Lua expressions (github.com/yuin/gopher-lua), evaluated in a
//     sandboxed state without io, os, debug or package libraries.
//
// Expressions are compiled once into a [Program] and evaluated many times.
// Variables are bound by name; [FromParams] exposes every request parameter
// with its first value coerced to int64, float64, bool or string.
//
//	engines := script.Default()
//	ok, err := engines.Evaluate("page > 1 && sort == 'asc'", script.CEL, vars)
//	ok, err = engines.Evaluate("page > 1 and sort == 'asc'", script.Lua, vars)
package script
