package model

// AuthClaims are the identity-provider claims the gateway relies on. The
// evidence service makes the authorization decisions itself.
type AuthClaims struct {
	UserID   string `json:"sub"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Type     string `json:"typ"`
	TokenID  string `json:"jti"`
}
