package auth

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/gophrelief/internal/common"
	"github.com/dmitrijs2005/gophrelief/internal/keyx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")
	addr := keyx.Address{0x11, 0x22}

	tok, err := GenerateToken(addr, secret, time.Hour)
	require.NoError(t, err)

	got, err := GetAddressFromToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, addr, got)
}

func TestGetAddressFromToken_Expired(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken(keyx.Address{1}, []byte("secret"), -1*time.Second)
	require.NoError(t, err)

	_, err = GetAddressFromToken(tok, []byte("secret"))
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestGetAddressFromToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken(keyx.Address{2}, []byte("right-secret"), time.Hour)
	require.NoError(t, err)

	_, err = GetAddressFromToken(tok, []byte("wrong-secret"))
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestGetAddressFromToken_Malformed(t *testing.T) {
	t.Parallel()

	_, err := GetAddressFromToken("not-a-jwt", []byte("secret"))
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestGetAddressFromToken_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		Address:          keyx.Address{3}.Hex(),
	})
	tok, err := token.SignedString(secret)
	require.NoError(t, err)

	_, err = GetAddressFromToken(tok, secret)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestGetAddressFromToken_BadAddressClaim(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		Address:          "zz",
	})
	tok, err := token.SignedString(secret)
	require.NoError(t, err)

	_, err = GetAddressFromToken(tok, secret)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}
