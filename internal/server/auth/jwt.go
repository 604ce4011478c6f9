package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/gophrelief/internal/common"
	"github.com/dmitrijs2005/gophrelief/internal/keyx"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the standard claims plus the authenticated wallet address.
type Claims struct {
	jwt.RegisteredClaims
	Address string
}

func GenerateToken(addr keyx.Address, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Address: addr.Hex(),
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func GetAddressFromToken(tokenString string, secretKey []byte) (keyx.Address, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if errors.Is(err, jwt.ErrTokenExpired) {
		return keyx.Address{}, common.ErrTokenExpired
	}
	if err != nil || !token.Valid {
		return keyx.Address{}, common.ErrInvalidToken
	}

	addr, err := keyx.ParseAddress(claims.Address)
	if err != nil {
		return keyx.Address{}, common.ErrInvalidToken
	}

	return addr, nil
}
