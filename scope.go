package zone

// ScopeMode decides whether exiting the outermost scope deletes the zone.
type ScopeMode int

const (
	DeleteOnExit ScopeMode = iota
	DontDeleteOnExit
)

func (m ScopeMode) String() string {
	switch m {
	case DeleteOnExit:
		return "delete-on-exit"
	case DontDeleteOnExit:
		return "dont-delete-on-exit"
	}
	return "unknown"
}

// Scope tracks phase nesting on a zone. When the outermost scope exits in
// DeleteOnExit mode the zone is deleted; inner scopes never delete, so
// nested phases cannot see memory disappear under them.
//
// Scopes must be exited in the reverse order of their creation:
//
//	s := zone.NewScope(owner, zone.DeleteOnExit)
//	defer s.Exit()
type Scope struct {
	zone   *Zone
	mode   ScopeMode
	depth  int
	exited bool
}

// NewScope opens a scope on the owner's zone.
func NewScope(owner *Owner, mode ScopeMode) *Scope {
	z := owner.Zone()
	z.scopeNesting++
	z.metrics.scopeChanged(z)
	return &Scope{zone: z, mode: mode, depth: z.scopeNesting}
}

// DeleteOnExit upgrades the scope so that it deletes the zone if it turns
// out to be the outermost one.
func (s *Scope) DeleteOnExit() {
	s.mode = DeleteOnExit
}

func (s *Scope) Mode() ScopeMode { return s.mode }

// ShouldDeleteOnExit reports whether exiting s right now would delete the
// zone.
func (s *Scope) ShouldDeleteOnExit() bool {
	return s.zone.scopeNesting == 1 && s.mode == DeleteOnExit
}

// Nesting returns the number of scopes currently open on the zone.
func (s *Scope) Nesting() int {
	return s.zone.scopeNesting
}

// Exit closes the scope. Exiting twice, or before scopes opened after this
// one, panics with ErrInvariantViolation.
func (s *Scope) Exit() {
	z := s.zone
	if s.exited {
		invariantViolation("zone scope exited twice")
	}
	if z.scopeNesting != s.depth {
		invariantViolation("zone scope at depth %d exited with nesting %d", s.depth, z.scopeNesting)
	}
	s.exited = true

	z.scopeNesting--
	z.metrics.scopeChanged(z)
	if z.scopeNesting == 0 && s.mode == DeleteOnExit {
		z.DeleteAll()
	}
}

// unwind exits s after discarding any scopes still open above it. It is
// used on panic paths and never panics itself.
func (s *Scope) unwind() {
	z := s.zone
	if s.exited || z.scopeNesting < s.depth {
		return
	}
	z.scopeNesting = s.depth
	s.Exit()
}
