package ir

// Combine structurally merges two declarations of the same entity (spec.md
// §4.1, §4.4): re-declaring a global, or matching a prototype against a
// later definition. It never panics on a mismatch — it reports
// incompatibility via the second return — because a user-level conflicting
// redeclaration is Fatal, not a Bug, and the caller (the cparser package) is
// the one that knows how to turn "false" into a diagnostic.
//
// Combine is associative and idempotent for equivalent declarations
// (spec.md §8): Combine(a, a) always succeeds, and Combine(Combine(a,b), c)
// agrees with Combine(a, Combine(b,c)) whenever both sides are defined,
// because every arm's merge rule (attribute union, recursive combine) is
// itself associative.
func (ta *TypeArena) Combine(old, newT TypeID, comps *Arena[CompID, Comp], typedefs *Arena[TypedefID, Typedef], iso *IsoSet) (TypeID, bool) {
	a := ta.Unroll(old, typedefs)
	b := ta.Unroll(newT, typedefs)
	ty := ta.Get(a)
	tz := ta.Get(b)
	if ty.Kind != tz.Kind {
		return None, false
	}

	attrs := WithAttrs(ty.Attrs, tz.Attrs)

	switch ty.Kind {
	case KVoid:
		return ta.rebuild(Type{Kind: KVoid, Attrs: attrs}), true
	case KVaList:
		return ta.rebuild(Type{Kind: KVaList, Attrs: attrs}), true
	case KInt:
		if ty.IKind != tz.IKind {
			return None, false
		}
		return ta.rebuild(Type{Kind: KInt, IKind: ty.IKind, Attrs: attrs}), true
	case KFloat:
		if ty.FKind != tz.FKind {
			return None, false
		}
		return ta.rebuild(Type{Kind: KFloat, FKind: ty.FKind, Attrs: attrs}), true
	case KPtr:
		base, ok := ta.Combine(ty.Base, tz.Base, comps, typedefs, iso)
		if !ok {
			return None, false
		}
		return ta.types.New(Type{Kind: KPtr, Base: base, Attrs: attrs}), true
	case KArray:
		base, ok := ta.Combine(ty.Base, tz.Base, comps, typedefs, iso)
		if !ok {
			return None, false
		}
		length, ok := combineArrayLen(ty.ArrayLen, tz.ArrayLen)
		if !ok {
			return None, false
		}
		return ta.types.New(Type{Kind: KArray, Base: base, ArrayLen: length, Attrs: attrs}), true
	case KFun:
		return ta.combineFun(ty, tz, attrs, comps, typedefs, iso)
	case KEnum:
		if ty.Enum != tz.Enum {
			return None, false
		}
		return ta.rebuild(Type{Kind: KEnum, Enum: ty.Enum, Attrs: attrs}), true
	case KComp:
		return ta.combineComp(ty, tz, attrs, comps, typedefs, iso)
	default:
		return None, false
	}
}

func combineArrayLen(a, b *int64) (*int64, bool) {
	switch {
	case a == nil && b == nil:
		return nil, true
	case a == nil:
		v := *b
		return &v, true
	case b == nil:
		v := *a
		return &v, true
	case *a == *b:
		v := *a
		return &v, true
	default:
		return nil, false
	}
}

func (ta *TypeArena) combineFun(ty, tz Type, attrs []Attr, comps *Arena[CompID, Comp], typedefs *Arena[TypedefID, Typedef], iso *IsoSet) (TypeID, bool) {
	if ty.Variadic != tz.Variadic || len(ty.Params) != len(tz.Params) {
		return None, false
	}
	ret, ok := ta.Combine(ty.Base, tz.Base, comps, typedefs, iso)
	if !ok {
		return None, false
	}
	params := make([]FunParam, len(ty.Params))
	for i := range ty.Params {
		pt, ok := ta.Combine(ty.Params[i].Type, tz.Params[i].Type, comps, typedefs, iso)
		if !ok {
			return None, false
		}
		// the new parameter name wins if present (spec.md §4.1)
		name := ty.Params[i].Name
		if tz.Params[i].Name != "" {
			name = tz.Params[i].Name
		}
		params[i] = FunParam{Name: name, Type: pt}
	}
	return ta.types.New(Type{Kind: KFun, Base: ret, Params: params, Variadic: ty.Variadic, Attrs: attrs}), true
}

func (ta *TypeArena) combineComp(ty, tz Type, attrs []Attr, comps *Arena[CompID, Comp], typedefs *Arena[TypedefID, Typedef], iso *IsoSet) (TypeID, bool) {
	if ty.Comp == tz.Comp {
		return ta.rebuild(Type{Kind: KComp, Comp: ty.Comp, Attrs: attrs}), true
	}
	if iso.IsIsomorphic(ty.Comp, tz.Comp) {
		return ta.rebuild(Type{Kind: KComp, Comp: ty.Comp, Attrs: attrs}), true
	}
	iso.MarkIsomorphic(ty.Comp, tz.Comp)
	ok := ta.compsStructurallyMatch(ty.Comp, tz.Comp, comps, typedefs, iso)
	if !ok {
		iso.UnmarkIsomorphic(ty.Comp, tz.Comp)
		return None, false
	}
	return ta.rebuild(Type{Kind: KComp, Comp: ty.Comp, Attrs: attrs}), true
}

// compsStructurallyMatch is the deep-equality half of combineComp: two comps
// a and b are already provisionally assumed equal (via iso) before this
// recurses, so a self-referential field (struct L { struct L *next; })
// terminates on the repeated pair instead of looping forever. Field names
// are not required to match (only the GCC layout and type of each
// positional field matter for compatibility), matching the spec's
// description of combine as a structural merge.
func (ta *TypeArena) compsStructurallyMatch(a, b CompID, comps *Arena[CompID, Comp], typedefs *Arena[TypedefID, Typedef], iso *IsoSet) bool {
	ca, cb := comps.Get(a), comps.Get(b)
	if ca.Kind != cb.Kind {
		return false
	}
	if !ca.IsDefined || !cb.IsDefined {
		// Two forward declarations of the same tag are compatible regardless
		// of field content; a defined vs. undefined pair combines to the
		// defined one without a field comparison.
		return true
	}
	if len(ca.Fields) != len(cb.Fields) {
		return false
	}
	for i := range ca.Fields {
		fa, fb := ca.Fields[i], cb.Fields[i]
		if (fa.BitWidth == nil) != (fb.BitWidth == nil) {
			return false
		}
		if fa.BitWidth != nil && *fa.BitWidth != *fb.BitWidth {
			return false
		}
		if _, ok := ta.Combine(fa.Type, fb.Type, comps, typedefs, iso); !ok {
			return false
		}
	}
	return true
}
