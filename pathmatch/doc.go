// Package pathmatch compiles path templates and matches request paths
// against them.
//
// A template is split into "/"-delimited segments. Literal segments must
// match exactly (case-sensitive); a "{name}" segment matches any non-empty
// segment and binds it:
//
//	t := pathmatch.MustCompile("/persons/{id}")
//	vars, ok := t.Match("/persons/42") // vars["id"] == "42"
//
// Variables may carry a constraint, either a regular expression or one of
// the named macros (uuid, int, float, number, bool, slug, alpha, alphanum,
// date, hex, domain). Parameter predicates use the same macros as
// "name={macro}".
//
//	pathmatch.MustCompile("/articles/{page:int}")
//	pathmatch.MustCompile("/files/{name}.{ext:alpha}")
//
// A trailing "*" or "{name...}" consumes the rest of the path:
//
//	t := pathmatch.MustCompile("/static/{file...}")
//	vars, _ := t.Match("/static/css/site.css") // vars["file"] == "css/site.css"
//
// Each request segment maps to exactly one template segment, so matching
// never backtracks. Without a catch-all, a segment-count mismatch fails.
package pathmatch
