package user

// Principal identifies an authenticated caller as reported by the league
// operations backend. Authorization itself is enforced there, not here.
type Principal struct {
	UserID string
	Email  string
	TeamID string
}
