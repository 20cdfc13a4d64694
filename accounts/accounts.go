package accounts

// Account is the long-lived credential record for one end-user of the
// partner service: the subscriber number and the opaque refresh token
// most recently issued for it. The refresh token rotates on every
// exchange, so the stored value is always the latest one, not the one
// the account was first registered with.
type Account struct {
	Number       int64  `json:"number"`
	RefreshToken string `json:"refresh_token"`
}
