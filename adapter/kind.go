package adapter

import (
	"fmt"
	"strings"
)

// Kind is an adapter capability.
type Kind uint8

// Capabilities.
const (
	Converter Kind = iota + 1
	ParamBinder
	Validator
	View
	Data
)

var kindNames = map[Kind]string{
	Converter:   "converter",
	ParamBinder: "param-binder",
	Validator:   "validator",
	View:        "view",
	Data:        "data",
}

// Kinds lists all capabilities.
func Kinds() []Kind {
	return []Kind{Converter, ParamBinder, Validator, View, Data}
}

// ParseKind parses a capability name as returned by Kind.String.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("adapter: unknown kind %q", s)
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", k)
}

func (k Kind) valid() bool {
	_, ok := kindNames[k]
	return ok
}
