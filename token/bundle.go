package token

// Bundle is the short-lived token triple produced by a refresh-token
// exchange. All three are opaque bearer strings. The partner may rotate
// the refresh token on every exchange, so the bundle's RefreshToken
// supersedes the one the exchange was made with.
type Bundle struct {
	RefreshToken string `json:"refresh_token"`
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
}
