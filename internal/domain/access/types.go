package access

type GrantState string

const (
	GrantNone    GrantState = "none"
	GrantActive  GrantState = "active"
	GrantExpired GrantState = "expired"
)
