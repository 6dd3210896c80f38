// Package reqtoken tracks which in-flight request is the current one for each
// logical role (free-text results, guided results, colleges, courses,
// profile). A response is applied only while its token is still current;
// issuing a newer request for the role, or invalidating the role, makes every
// older token stale.
package reqtoken

import "sync"

// Role names a kind of request whose responses supersede each other.
type Role string

// Roles used by the portal session.
const (
	RoleSearch   Role = "search"
	RoleGuided   Role = "guided"
	RoleColleges Role = "colleges"
	RoleCourses  Role = "courses"
	RoleYears    Role = "years"
	RoleProfile  Role = "profile"
)

// Token identifies one issued request.
type Token struct {
	role Role
	gen  uint64
}

// Role returns the role the token was issued for.
func (t Token) Role() Role {
	return t.role
}

// Tracker hands out tokens. The zero value is ready to use.
type Tracker struct {
	mu   sync.Mutex
	gens map[Role]uint64
}

// Issue returns a new token for role, superseding all earlier ones.
func (t *Tracker) Issue(role Role) Token {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gens == nil {
		t.gens = make(map[Role]uint64)
	}
	t.gens[role]++
	return Token{role: role, gen: t.gens[role]}
}

// Invalidate makes every outstanding token for role stale without issuing a
// new request.
func (t *Tracker) Invalidate(roles ...Role) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gens == nil {
		t.gens = make(map[Role]uint64)
	}
	for _, role := range roles {
		t.gens[role]++
	}
}

// Current reports whether tok is the latest token for its role.
func (t *Tracker) Current(tok Token) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return tok.gen != 0 && t.gens[tok.role] == tok.gen
}
