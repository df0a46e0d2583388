package ir

// CodeKind distinguishes the two shapes a Code block can take (spec.md
// §3.5): Expr owns a trailing result value, Cond owns two backpatch lists
// awaiting a jump target.
type CodeKind int

const (
	CodeExpr CodeKind = iota
	CodeCond
)

func (k CodeKind) String() string {
	if k == CodeCond {
		return "cond"
	}
	return "expr"
}

// Code is an ordered statement sequence [First...Last] plus the locals it
// owns. Kind picks which of the Expr/Cond-only fields apply.
type Code struct {
	Kind CodeKind

	First StmtID
	Last  StmtID

	Owns []VarID // function-scope locals this code block owns

	HasValue bool  // CodeExpr: whether Value is meaningful ("none" result)
	Value    Value // CodeExpr

	TrueJumps  []StmtID // CodeCond: statements whose JumpTarget awaits patch
	FalseJumps []StmtID // CodeCond
}

// NewEmptyExpr returns an orphan, empty Expr code with no result value.
func NewEmptyExpr() *Code { return &Code{Kind: CodeExpr} }

// NewExprValue returns an orphan, empty Expr code whose result is v.
func NewExprValue(v Value) *Code { return &Code{Kind: CodeExpr, HasValue: true, Value: v} }

// NewEmptyCond returns an orphan, empty Cond code with no statements yet;
// callers append a Cmp+Goto pair and record their handles in TrueJumps /
// FalseJumps.
func NewEmptyCond() *Code { return &Code{Kind: CodeCond} }

// checkInvariant enforces spec.md §3.5's "first == 0 iff last == 0".
func (c *Code) checkInvariant() {
	if (c.First == None) != (c.Last == None) {
		panic("ir: code block violates first==0 iff last==0 invariant")
	}
}

// AppendStmt appends the orphan statement sh to the end of c's chain. sh
// must not already belong to a code block or be linked to another
// statement.
func AppendStmt(stmts *Arena[StmtID, Stmt], c *Code, sh StmtID) {
	s := stmts.Get(sh)
	if s.Prev != None || s.Next != None {
		panic("ir: AppendStmt: statement is not orphan")
	}
	c.checkInvariant()
	if c.Last == None {
		c.First = sh
		c.Last = sh
		return
	}
	last := stmts.Get(c.Last)
	last.Next = sh
	s.Prev = c.Last
	c.Last = sh
}

// Orphanize detaches sh from whichever code block it belongs to, repairing
// the predecessor/successor chain and the owning code's First/Last anchors.
// The caller supplies the owning code because a Stmt does not itself record
// which Code it belongs to (spec.md §3.5 only requires the converse: a Code
// anchors First/Last).
func Orphanize(stmts *Arena[StmtID, Stmt], c *Code, sh StmtID) {
	s := stmts.Get(sh)
	prev, next := s.Prev, s.Next

	switch {
	case prev == None && next == None:
		if c.First != sh || c.Last != sh {
			panic("ir: Orphanize: statement not found in code block")
		}
		c.First, c.Last = None, None
	case prev == None:
		if c.First != sh {
			panic("ir: Orphanize: statement not found at head")
		}
		stmts.Get(next).Prev = None
		c.First = next
	case next == None:
		if c.Last != sh {
			panic("ir: Orphanize: statement not found at tail")
		}
		stmts.Get(prev).Next = None
		c.Last = prev
	default:
		stmts.Get(prev).Next = next
		stmts.Get(next).Prev = prev
	}
	s.Prev, s.Next = None, None
	c.checkInvariant()
}

// AppendCode splices src's entire statement chain and owned-variable list
// onto the end of dst, transferring ownership; src is left empty (callers
// must not reuse it). Per spec.md §3.5, "src is freed".
func AppendCode(stmts *Arena[StmtID, Stmt], dst, src *Code) {
	dst.checkInvariant()
	src.checkInvariant()
	if src.First != None {
		if dst.Last == None {
			dst.First = src.First
		} else {
			stmts.Get(dst.Last).Next = src.First
			stmts.Get(src.First).Prev = dst.Last
		}
		dst.Last = src.Last
	}
	dst.Owns = append(dst.Owns, src.Owns...)
	src.First, src.Last, src.Owns = None, None, nil
}

// Walk calls fn for every statement owned by c, from First to Last.
func Walk(stmts *Arena[StmtID, Stmt], c *Code, fn func(h StmtID, s *Stmt)) {
	for h := c.First; h != None; {
		s := stmts.Get(h)
		next := s.Next
		fn(h, s)
		h = next
	}
}
