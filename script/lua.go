package script

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

// DefaultLuaTimeout bounds a single Lua evaluation.
const DefaultLuaTimeout = 100 * time.Millisecond

// LuaOption configures the lua evaluator.
type LuaOption func(*luaEvaluator)

// WithLuaTimeout sets the maximum duration of one evaluation. Zero disables
// the limit.
func WithLuaTimeout(d time.Duration) LuaOption {
	return func(e *luaEvaluator) {
		e.timeout = d
	}
}

type luaEvaluator struct {
	timeout time.Duration
	states  sync.Pool
}

// NewLua returns the lua dialect evaluator. An expression is compiled as
// the body of "return (expr)"; its result follows Lua truthiness, so only
// nil and false are false.
//
// A *lua.LState is not goroutine-safe, so evaluations borrow sandboxed
// states from a pool.
func NewLua(opts ...LuaOption) Evaluator {
	e := &luaEvaluator{timeout: DefaultLuaTimeout}
	for _, opt := range opts {
		opt(e)
	}
	e.states.New = func() any {
		return newSandboxedState()
	}
	return e
}

func newSandboxedState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}

func (e *luaEvaluator) Dialect() Dialect {
	return Lua
}

func (e *luaEvaluator) Compile(expr string) (Program, error) {
	chunk, err := parse.Parse(strings.NewReader("return ("+expr+")"), "<expr>")
	if err != nil {
		return nil, &CompileError{Dialect: Lua, Expr: expr, Err: err}
	}

	proto, err := lua.Compile(chunk, "<expr>")
	if err != nil {
		return nil, &CompileError{Dialect: Lua, Expr: expr, Err: err}
	}

	return &luaProgram{src: expr, proto: proto, ev: e}, nil
}

type luaProgram struct {
	src   string
	proto *lua.FunctionProto
	ev    *luaEvaluator
}

func (p *luaProgram) Eval(vars Vars) (bool, error) {
	L := p.ev.states.Get().(*lua.LState)
	defer p.ev.states.Put(L)
	defer L.SetTop(0)

	if p.ev.timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), p.ev.timeout)
		defer cancel()
		L.SetContext(ctx)
		defer L.RemoveContext()
	}

	fn := L.NewFunctionFromProto(p.proto)
	L.SetFEnv(fn, newEnv(L, vars))
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		return false, fmt.Errorf("script: eval lua expression %q: %w", p.src, err)
	}

	return lua.LVAsBool(L.Get(-1)), nil
}

// newEnv returns the environment of one evaluation: a fresh table holding
// vars that falls back to the sandbox globals for every other name. Request
// variables shadow builtins of the same name without touching the state's
// globals.
func newEnv(L *lua.LState, vars Vars) *lua.LTable {
	env := L.CreateTable(0, len(vars))
	for name, v := range vars {
		env.RawSetString(name, toLValue(v))
	}
	meta := L.CreateTable(0, 1)
	meta.RawSetString("__index", L.G.Global)
	L.SetMetatable(env, meta)
	return env
}

func (p *luaProgram) Source() string {
	return p.src
}

func (p *luaProgram) Dialect() Dialect {
	return Lua
}

func toLValue(v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(x)
	case int64:
		return lua.LNumber(x)
	case int:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	case string:
		return lua.LString(x)
	default:
		return lua.LString(fmt.Sprint(x))
	}
}
