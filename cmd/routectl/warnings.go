package main

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

const ambiguousMessage = "ambiguous handler mappings"

// ambiguity is one pair of overlapping mappings reported by the builder.
type ambiguity struct {
	Selected string
	Shadowed string
	Key      string
}

// ambiguityCore keeps the ambiguity warnings logged while a table is built
// and drops every other entry.
type ambiguityCore struct {
	fields []zapcore.Field
	found  *[]ambiguity
}

func newAmbiguityCore() *ambiguityCore {
	return &ambiguityCore{found: new([]ambiguity)}
}

func (c *ambiguityCore) Enabled(l zapcore.Level) bool {
	return l >= zapcore.WarnLevel
}

func (c *ambiguityCore) With(fields []zapcore.Field) zapcore.Core {
	return &ambiguityCore{
		fields: append(c.fields[:len(c.fields):len(c.fields)], fields...),
		found:  c.found,
	}
}

func (c *ambiguityCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) && ent.Message == ambiguousMessage {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *ambiguityCore) Write(_ zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	*c.found = append(*c.found, ambiguity{
		Selected: fmt.Sprint(enc.Fields["selected"]),
		Shadowed: fmt.Sprint(enc.Fields["shadowed"]),
		Key:      fmt.Sprint(enc.Fields["key"]),
	})
	return nil
}

func (c *ambiguityCore) Sync() error {
	return nil
}

// All returns the warnings collected so far.
func (c *ambiguityCore) All() []ambiguity {
	return *c.found
}
