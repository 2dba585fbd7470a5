// Package recache holds the process-wide cache of compiled regular
// expressions shared by path templates and parameter predicates.
package recache

import (
	"regexp"
	"sync"
)

// cache maps expression sources to compiled expressions. Sources come from
// declared mappings, so the cache stops growing once the handler table is
// built.
var cache sync.Map // map[string]*regexp.Regexp

// Compile returns the cached expression for src, compiling it on first use.
// Concurrent first use keeps the first stored value.
func Compile(src string) (*regexp.Regexp, error) {
	if v, ok := cache.Load(src); ok {
		return v.(*regexp.Regexp), nil
	}

	re, err := regexp.Compile(src)
	if err != nil {
		return nil, err
	}

	actual, _ := cache.LoadOrStore(src, re)
	return actual.(*regexp.Regexp), nil
}

// Whole returns the cached expression matching complete values against
// pattern. flags are inline RE2 flags such as "i" or "ms" and may be empty.
// The anchors are \A and \z, so the m flag only affects ^ and $ inside
// pattern.
func Whole(pattern, flags string) (*regexp.Regexp, error) {
	src := `\A(?:` + pattern + `)\z`
	if flags != "" {
		src = "(?" + flags + ")" + src
	}
	return Compile(src)
}

// Len returns the number of cached expressions.
func Len() int {
	n := 0
	cache.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}
