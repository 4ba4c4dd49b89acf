package model

// KnownRoles lists every role the engine can generate content for.
func KnownRoles() []Role {
	return []Role{RolePillar, RoleSupport, RoleGeneral, RoleCommercial, RoleListicle}
}

// KnownRole reports whether a role has generation support.
func KnownRole(r Role) bool {
	for _, k := range KnownRoles() {
		if k == r {
			return true
		}
	}
	return false
}

// KnownAnchorPattern reports whether an anchor pattern is supported.
func KnownAnchorPattern(p AnchorPattern) bool {
	switch p {
	case AnchorExact, AnchorPartial, AnchorSemantic, AnchorAction, AnchorList:
		return true
	}
	return false
}
