package jit

import "plugin"

// HostSymbols implements spec.md §6's "boolean find_symbol(name) ->
// pointer" interface: mapping a C identifier to a host-process address.
// A dlsym-style lookup against the running process is not something the Go
// runtime exposes, and a bare Go func value cannot stand in for an
// arbitrary C-ABI entry point either, so this resolves two ways: a static
// table a caller populates via RegisterStatic (each address normally coming
// from a small per-symbol cgo or assembly shim built outside this package),
// and, for anything compiled as a Go plugin, plugin.Open/Lookup. The table
// starts empty; a miss is spec.md's "unresolved external symbol" fatal
// path, not a bug. This is a standard-library-only component: spec.md §6
// leaves symbol resolution's mechanism unspecified ("typically via a
// dynamic-loader lookup"), and neither this pack nor the teacher repo
// carries a dynamic-symbol/dlopen dependency to bind to here, so reaching
// for `plugin` (stdlib) over inventing a fake ecosystem dependency is the
// documented exception (see DESIGN.md).
type HostSymbols struct {
	static  map[string]uintptr
	plugins []*plugin.Plugin
}

// NewHostSymbols returns an empty table; callers normally call RegisterStatic once at
// startup for each host function the translation unit may call via
// `extern`.
func NewHostSymbols() *HostSymbols {
	return &HostSymbols{static: make(map[string]uintptr)}
}

// RegisterStatic binds name to a fixed address, typically obtained from a
// cgo shim or a Go function wrapped to the C ABI by the stub's caller.
func (h *HostSymbols) RegisterStatic(name string, addr uintptr) {
	h.static[name] = addr
}

// RegisterPlugin adds a Go plugin (opened via plugin.Open) as a fallback
// symbol source; its exported functions are looked up by name on a miss in
// the static table.
func (h *HostSymbols) RegisterPlugin(p *plugin.Plugin) {
	h.plugins = append(h.plugins, p)
}

// Find implements find_symbol: it reports the address for name and
// whether the lookup succeeded.
func (h *HostSymbols) Find(name string) (uintptr, bool) {
	if addr, ok := h.static[name]; ok {
		return addr, true
	}
	for _, p := range h.plugins {
		if sym, err := p.Lookup(name); err == nil {
			return addrOfFuncValue(sym), true
		}
	}
	return 0, false
}

// addrOfFuncValue extracts a callable address from a plugin symbol. Go
// plugin symbols are already typed Go values (funcs or vars), not bare
// code pointers; a real deployment would require the plugin to export a
// func() with a C-compatible ABI wrapper (e.g. built with a small cgo
// trampoline) — this function is the single seam where that expectation
// lives.
func addrOfFuncValue(sym plugin.Symbol) uintptr {
	if fn, ok := sym.(func() uintptr); ok {
		return fn()
	}
	return 0
}
