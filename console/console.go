// Package console runs Lua scripts against a cvar.Registry so settings can
// be inspected and changed while a program runs.
//
// Scripts see these globals:
//
//	cvar_get(name)         -> string
//	cvar_set(name, value)  -- value may be a string, number or boolean
//	cvar_reset(name)
//	cvar_list()            -> { {name=, value=, default=, flags=}, ... }
//	print(...)             -- writes to the console output
//
// Only the base, table, string and math libraries are loaded; scripts have
// no file or OS access.
package console

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/gogpu/fsr/cvar"
)

// ErrClosed is returned when a closed console is used.
var ErrClosed = errors.New("console: closed")

// Console is a Lua interpreter bound to a settings registry. It is safe for
// concurrent use; scripts run one at a time.
type Console struct {
	mu  sync.Mutex
	L   *lua.LState
	reg *cvar.Registry
	out io.Writer
}

// New creates a console over reg. Script output goes to out; a nil out
// discards it.
func New(reg *cvar.Registry, out io.Writer) *Console {
	if out == nil {
		out = io.Discard
	}
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	// The base library exposes file loaders; scripts come from the host.
	for _, name := range []string{"dofile", "loadfile"} {
		L.SetGlobal(name, lua.LNil)
	}

	c := &Console{L: L, reg: reg, out: out}
	L.SetGlobal("cvar_get", L.NewFunction(c.luaGet))
	L.SetGlobal("cvar_set", L.NewFunction(c.luaSet))
	L.SetGlobal("cvar_reset", L.NewFunction(c.luaReset))
	L.SetGlobal("cvar_list", L.NewFunction(c.luaList))
	L.SetGlobal("print", L.NewFunction(c.luaPrint))
	return c
}

// Exec runs a chunk of Lua source.
func (c *Console) Exec(src string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.L == nil {
		return ErrClosed
	}
	if err := c.L.DoString(src); err != nil {
		return fmt.Errorf("console: %w", err)
	}
	return nil
}

// ExecFile runs the Lua script at path.
func (c *Console) ExecFile(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.L == nil {
		return ErrClosed
	}
	if err := c.L.DoFile(path); err != nil {
		return fmt.Errorf("console: %s: %w", path, err)
	}
	return nil
}

// Close releases the interpreter. It is idempotent.
func (c *Console) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.L != nil {
		c.L.Close()
		c.L = nil
	}
}

func (c *Console) luaGet(L *lua.LState) int {
	name := L.CheckString(1)
	v, err := c.reg.Get(name)
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	L.Push(lua.LString(v))
	return 1
}

func (c *Console) luaSet(L *lua.LState) int {
	name := L.CheckString(1)
	var value string
	switch v := L.CheckAny(2).(type) {
	case lua.LString:
		value = string(v)
	case lua.LNumber:
		value = v.String()
	case lua.LBool:
		value = "0"
		if bool(v) {
			value = "1"
		}
	default:
		L.ArgError(2, "string, number or boolean expected, got "+v.Type().String())
		return 0
	}
	if err := c.reg.Set(name, value); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

func (c *Console) luaReset(L *lua.LState) int {
	if err := c.reg.Reset(L.CheckString(1)); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

func (c *Console) luaList(L *lua.LState) int {
	t := L.NewTable()
	for _, v := range c.reg.All() {
		e := L.NewTable()
		e.RawSetString("name", lua.LString(v.Name()))
		e.RawSetString("value", lua.LString(v.String()))
		e.RawSetString("default", lua.LString(v.Default()))
		e.RawSetString("flags", lua.LString(v.Flags().String()))
		t.Append(e)
	}
	L.Push(t)
	return 1
}

func (c *Console) luaPrint(L *lua.LState) int {
	n := L.GetTop()
	parts := make([]string, n)
	for i := 1; i <= n; i++ {
		parts[i-1] = L.ToStringMeta(L.Get(i)).String()
	}
	fmt.Fprintln(c.out, strings.Join(parts, "\t"))
	return 0
}
