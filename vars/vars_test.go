package vars

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestBindAndLookup(t *testing.T) {
	c := qt.New(t)
	e := New()
	e.Bind("foo", Variable{Value: StringVal("bar")})
	c.Assert(e.Lookup("foo").Value.String(), qt.Equals, "bar")
	c.Assert(e.Lookup("missing").IsSet(), qt.IsFalse)
}

func TestReadOnlyRejectsBind(t *testing.T) {
	c := qt.New(t)
	e := New()
	e.Bind("foo", Variable{Attrs: ReadOnly, Value: StringVal("bar")})
	ok := e.Bind("foo", Variable{Value: StringVal("baz")})
	c.Assert(ok, qt.IsFalse)
	c.Assert(e.Lookup("foo").Value.String(), qt.Equals, "bar")
}

func TestReadOnlyRejectsUnset(t *testing.T) {
	c := qt.New(t)
	e := New()
	e.Bind("foo", Variable{Attrs: ReadOnly, Value: StringVal("bar")})
	ok := e.Unset("foo")
	c.Assert(ok, qt.IsFalse)
}

func TestScopePushPop(t *testing.T) {
	c := qt.New(t)
	e := New()
	e.Bind("g", Variable{Value: StringVal("global")})
	e.PushContext()
	e.Bind("l", Variable{Attrs: Local, Value: StringVal("local")})
	c.Assert(e.Lookup("g").Value.String(), qt.Equals, "global")
	c.Assert(e.Lookup("l").Value.String(), qt.Equals, "local")
	e.PopContext()
	c.Assert(e.Lookup("l").IsSet(), qt.IsFalse)
	c.Assert(e.Lookup("g").Value.String(), qt.Equals, "global")
}

func TestScopeShadowing(t *testing.T) {
	c := qt.New(t)
	e := New()
	e.Bind("x", Variable{Value: StringVal("outer")})
	e.PushContext()
	e.Bind("x", Variable{Attrs: Local, Value: StringVal("inner")})
	c.Assert(e.Lookup("x").Value.String(), qt.Equals, "inner")
	e.PopContext()
	c.Assert(e.Lookup("x").Value.String(), qt.Equals, "outer")
}

func TestNameRefChase(t *testing.T) {
	c := qt.New(t)
	e := New()
	e.Bind("target", Variable{Value: StringVal("value")})
	e.Bind("ref", Variable{Attrs: NameRef, Value: StringVal("target")})
	c.Assert(e.Lookup("ref").Value.String(), qt.Equals, "value")
}

func TestNameRefChainBounded(t *testing.T) {
	c := qt.New(t)
	e := New()
	// a self-referencing nameref chain must terminate rather than loop
	// forever, bounded by maxNameRefHops.
	e.Bind("a", Variable{Attrs: NameRef, Value: StringVal("a")})
	vr := e.Lookup("a")
	c.Assert(vr.Attrs.Has(NameRef), qt.IsTrue)
}

func TestDynamicVar(t *testing.T) {
	c := qt.New(t)
	e := New()
	calls := 0
	e.RegisterDynamic("COUNTER", DynamicVar{
		Get: func() string { calls++; return "dynamic" },
	})
	c.Assert(e.Lookup("COUNTER").Value.String(), qt.Equals, "dynamic")
	c.Assert(calls, qt.Equals, 1)
}

func TestDynamicVarReadOnlySet(t *testing.T) {
	c := qt.New(t)
	e := New()
	e.RegisterDynamic("RO", DynamicVar{Get: func() string { return "x" }})
	ok := e.Bind("RO", Variable{Value: StringVal("y")})
	c.Assert(ok, qt.IsFalse)
}

func TestOnSetHook(t *testing.T) {
	c := qt.New(t)
	e := New()
	var seen string
	e.OnSet("IFS", func(e *Engine, name, value string) { seen = value })
	e.Bind("IFS", Variable{Value: StringVal(" \t\n")})
	c.Assert(seen, qt.Equals, " \t\n")
}

func TestExportEnv(t *testing.T) {
	c := qt.New(t)
	e := New()
	e.Bind("PATH", Variable{Attrs: Exported, Value: StringVal("/bin")})
	e.Bind("secret", Variable{Value: StringVal("hidden")})
	env := e.ExportEnv()
	c.Assert(env, qt.DeepEquals, []string{"PATH=/bin"})
}

func TestExportEnvCacheInvalidatedOnBind(t *testing.T) {
	c := qt.New(t)
	e := New()
	e.Bind("A", Variable{Attrs: Exported, Value: StringVal("1")})
	_ = e.ExportEnv()
	e.Bind("B", Variable{Attrs: Exported, Value: StringVal("2")})
	env := e.ExportEnv()
	c.Assert(env, qt.DeepEquals, []string{"A=1", "B=2"})
}

func TestExportEnvCacheInvalidatedOnUnset(t *testing.T) {
	c := qt.New(t)
	e := New()
	e.Bind("A", Variable{Attrs: Exported, Value: StringVal("1")})
	_ = e.ExportEnv()
	e.Unset("A")
	env := e.ExportEnv()
	c.Assert(env, qt.HasLen, 0)
}

func TestFromEnviron(t *testing.T) {
	c := qt.New(t)
	e := New()
	e.FromEnviron([]string{"HOME=/root", "SHELL=/bin/wsh"})
	c.Assert(e.Lookup("HOME").Value.String(), qt.Equals, "/root")
	c.Assert(e.Lookup("HOME").Attrs.Has(Exported), qt.IsTrue)
	env := e.ExportEnv()
	c.Assert(env, qt.HasLen, 2)
}

func TestEachShadowing(t *testing.T) {
	c := qt.New(t)
	e := New()
	e.Bind("x", Variable{Value: StringVal("outer")})
	e.Bind("y", Variable{Value: StringVal("global-only")})
	e.PushContext()
	e.Bind("x", Variable{Attrs: Local, Value: StringVal("inner")})

	seen := map[string]string{}
	e.Each(func(name string, vr Variable) bool {
		seen[name] = vr.Value.String()
		return true
	})
	c.Assert(seen["x"], qt.Equals, "inner")
	c.Assert(seen["y"], qt.Equals, "global-only")
}

func TestIndexArrayString(t *testing.T) {
	c := qt.New(t)
	var empty IndexArray
	c.Assert(empty.String(), qt.Equals, "")
	arr := IndexArray{"first", "second"}
	c.Assert(arr.String(), qt.Equals, "first")
}
