package rbac

import (
	"fmt"

	"github.com/sekolah-suite/sekolah/internal/shared"
)

// Evaluator answers allow/deny questions against a loaded matrix. It is a
// pure computation: no I/O, deterministic, safe for concurrent use. Callers
// supply ownership facts; the evaluator never fetches entities itself.
type Evaluator struct {
	matrix *Matrix
}

// NewEvaluator wraps a validated matrix.
func NewEvaluator(matrix *Matrix) *Evaluator {
	return &Evaluator{matrix: matrix}
}

// Authorize decides whether the principal may perform action on resource.
// ownerID is the owner of the target entity, or "" when the request has no
// single target (list, create). Unknown roles and missing matrix entries
// fail closed.
//
// A plain action is granted when the matrix lists it. When it is not, the
// "-own" variant is consulted: it grants access only when ownerID equals
// the principal's user id.
func (e *Evaluator) Authorize(p shared.Principal, resource Resource, action Action, ownerID string) Decision {
	role := Role(p.Role)
	if !ValidRole(p.Role) {
		return Deny(fmt.Sprintf("unknown role %q", p.Role))
	}

	set, ok := e.matrix.Actions(role, resource)
	if !ok {
		return Deny(fmt.Sprintf("no matrix entry for (%s, %s)", role, resource))
	}

	if action.IsOwn() {
		if !set.Has(action) {
			return Deny(fmt.Sprintf("role %s may not %s %s", role, action, resource))
		}
		if ownerID == "" || ownerID != p.UserID {
			return Deny(fmt.Sprintf("%s on %s limited to own records", action, resource))
		}
		return Allow()
	}

	if set.Has(action) {
		return Allow()
	}
	if own := action.OwnVariant(); own != "" && set.Has(own) {
		if ownerID != "" && ownerID == p.UserID {
			return Allow()
		}
		return Deny(fmt.Sprintf("%s on %s limited to own records", action, resource))
	}
	return Deny(fmt.Sprintf("role %s may not %s %s", role, action, resource))
}
