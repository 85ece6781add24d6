package access

import "time"

// StateOf reports whether a grant can be used at now. A nil grant means the
// user never bought the product; a nil expiry means the grant never lapses.
func StateOf(now time.Time, g *GptAccess) GrantState {
	if g == nil {
		return GrantNone
	}
	if g.ExpiresAt != nil && !now.Before(*g.ExpiresAt) {
		return GrantExpired
	}
	return GrantActive
}

func Usable(now time.Time, g *GptAccess) bool {
	return StateOf(now, g) == GrantActive
}
