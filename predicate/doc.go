// Package predicate implements the parameter constraint language attached to
// handler mappings.
//
// A constraint is one of:
//
//	name             parameter is present
//	!name            parameter is absent
//	name=value       first value equals value
//	name!=value      parameter is present and its first value differs
//	name=/re/flags   first value matches re as a whole
//	name!=/re/flags  parameter is present and its first value does not match re
//	name={macro}     first value matches a path macro such as int or uuid
//	name!={macro}    parameter is present and its first value does not match it
//	cel: expr        boolean CEL expression over all parameters
//	lua: expr        boolean Lua expression over all parameters
//	expr             boolean expression in the default dialect
//
// Literal operands may not contain whitespace, quotes, parentheses, '&' or
// '|'; an expression with such an operand is parsed as a script, so
// "a != 'x' && a != 'y'" is a script rather than a comparison.
//
// Regular expression flags are i (case-insensitive), m (multi-line), s (dot
// matches newline) and u (accepted for compatibility; matching is always
// Unicode aware).
//
// Constraints on the same parameter name are alternatives; constraints on
// different names must all hold. Every script constraint is a group of its
// own. A [Set] is evaluated group by group and stops at the first group none
// of whose constraints hold.
package predicate
