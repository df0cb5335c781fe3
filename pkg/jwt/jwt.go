package jwtutil

import (
	"crypto/rsa"
	"errors"
	"os"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const RoleSeller = "seller"

var ErrPublicKeyNotConfigured = errors.New("jwt public key not configured")

// Claims are issued by the external account service. Only verification
// happens here; SignAccessToken exists for tooling and tests.
type Claims struct {
	SellerID string `json:"sid"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func NewClaims(sellerID, role string, expiry time.Duration) *Claims {
	now := time.Now().UTC()
	return &Claims{
		SellerID: sellerID,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sellerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
}

func SignAccessToken(claims *Claims, privateKey *rsa.PrivateKey) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(privateKey)
}

func ParseAccessToken(tokenStr string, publicKey *rsa.PublicKey) (*Claims, error) {
	if publicKey == nil {
		return nil, ErrPublicKeyNotConfigured
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return publicKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	if claims.SellerID == "" {
		claims.SellerID = claims.Subject
	}
	return claims, nil
}

// LoadRSAPublicKey parses pemText, or reads the PEM from path when pemText is
// empty.
func LoadRSAPublicKey(pemText, path string) (*rsa.PublicKey, error) {
	pemText = strings.TrimSpace(pemText)
	if pemText == "" && strings.TrimSpace(path) != "" {
		// #nosec G304 -- path is provided by operator configuration.
		buf, err := os.ReadFile(strings.TrimSpace(path))
		if err != nil {
			return nil, err
		}
		pemText = string(buf)
	}
	if pemText == "" {
		return nil, ErrPublicKeyNotConfigured
	}
	return jwt.ParseRSAPublicKeyFromPEM([]byte(pemText))
}
