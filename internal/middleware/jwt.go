package middleware

import (
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"evidence-explorer/internal/model"
	"evidence-explorer/pkg/apierror"
)

// HMACValidator verifies HS256/384/512 bearer tokens issued by the identity
// provider with a shared secret.
type HMACValidator struct {
	secret []byte
	parser *jwt.Parser
}

func NewHMACValidator(secret string) (*HMACValidator, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("jwt secret must be at least 16 bytes")
	}

	return &HMACValidator{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

// ValidateToken checks signature and expiry. expectedType is compared to the
// "typ" claim only when both are present.
func (v *HMACValidator) ValidateToken(tokenString string, expectedType string) (*model.AuthClaims, error) {
	parsed, err := v.parser.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, apierror.New(apierror.CodeUnauthorized, "invalid token", "", http.StatusUnauthorized)
	}

	claimsMap, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apierror.New(apierror.CodeUnauthorized, "invalid token claims", "", http.StatusUnauthorized)
	}

	typ, _ := claimsMap["typ"].(string)
	if expectedType != "" && typ != "" && typ != expectedType {
		return nil, apierror.New(apierror.CodeUnauthorized, "invalid token type", "", http.StatusUnauthorized)
	}

	claims := &model.AuthClaims{Type: typ}
	claims.UserID, _ = claimsMap["sub"].(string)
	claims.Username, _ = claimsMap["username"].(string)
	claims.Role, _ = claimsMap["role"].(string)
	claims.TokenID, _ = claimsMap["jti"].(string)

	if claims.Username == "" {
		claims.Username, _ = claimsMap["preferred_username"].(string)
	}

	if claims.UserID == "" {
		return nil, apierror.New(apierror.CodeUnauthorized, "invalid token subject", "", http.StatusUnauthorized)
	}

	return claims, nil
}
