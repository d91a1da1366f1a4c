package auth

// AccessPolicy decides record-level access from the caller's role and the
// record owner.
type AccessPolicy struct {
	checker PermissionChecker
}

func NewAccessPolicy(checker PermissionChecker) *AccessPolicy {
	if checker == nil {
		checker = NewPermissionChecker()
	}
	return &AccessPolicy{checker: checker}
}

func (p *AccessPolicy) CanView(u *User, ownerID string) error {
	if u == nil {
		return ErrForbidden
	}
	if p.checker.CanViewAllRequests(u.Role) || u.ID == ownerID {
		return nil
	}
	return ErrForbidden
}

// CanEdit allows owners to edit their own requests; reviewers may edit any.
func (p *AccessPolicy) CanEdit(u *User, ownerID string) error {
	return p.CanView(u, ownerID)
}

func (p *AccessPolicy) CanChangeStatus(u *User) error {
	if u == nil || !p.checker.CanChangeStatus(u.Role) {
		return ErrForbidden
	}
	return nil
}

// OwnerScope returns the owner filter to apply to list and bulk queries:
// empty for reviewers, the caller's id otherwise.
func (p *AccessPolicy) OwnerScope(u *User) string {
	if u == nil || p.checker.CanViewAllRequests(u.Role) {
		return ""
	}
	return u.ID
}
