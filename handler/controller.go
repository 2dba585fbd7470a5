package handler

import (
	"reflect"

	"github.com/CommerceBoard/geemvc/bind"
	"github.com/CommerceBoard/geemvc/mapping"
	"github.com/CommerceBoard/geemvc/pathmatch"
)

// Controller declares a group of handler methods sharing a base path.
type Controller struct {
	Name string
	// Path is the base path template, "/" when empty.
	Path    string
	Methods []Method
}

// Method declares one handler method.
type Method struct {
	Name string
	// Path is relative to the controller path.
	Path   string
	Method string
	// Params are parameter predicates.
	Params   []string
	Priority int

	// Func is the handler function. It may be nil for declarations that
	// are only resolved, never invoked.
	Func any
	// Bind names the non-injected parameters of Func, see bind.ParamsOf.
	Bind []string
}

// Entry is a compiled controller.
type Entry struct {
	Controller *Controller
	Base       *pathmatch.Template
	// Candidates are the controller's methods in resolution order.
	Candidates []*Candidate
	order      int
}

// Name returns the controller name.
func (e *Entry) Name() string {
	return e.Controller.Name
}

// Order returns the registration order of the controller.
func (e *Entry) Order() int {
	return e.order
}

// Candidate associates a mapping key with its controller and method.
type Candidate struct {
	Entry  *Entry
	Method *Method
	Key    *mapping.Key
	Params []bind.Param

	fn reflect.Value
}

// Name returns "Controller.Method".
func (c *Candidate) Name() string {
	return c.Entry.Controller.Name + "." + c.Method.Name
}

// Func returns the handler function, invalid when none was declared.
func (c *Candidate) Func() reflect.Value {
	return c.fn
}

// Invocable reports whether the candidate has a handler function.
func (c *Candidate) Invocable() bool {
	return c.fn.IsValid()
}

func (c *Candidate) String() string {
	return c.Name() + " " + c.Key.String()
}
