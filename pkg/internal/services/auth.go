package services

import (
	"fmt"
	"strconv"
	"time"

	"git.solsynth.dev/hypernet/circle/pkg/internal/database"
	"git.solsynth.dev/hypernet/circle/pkg/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

type TokenClaims struct {
	jwt.RegisteredClaims

	AccountID uint   `json:"id"`
	Role      string `json:"role,omitempty"`
	Type      string `json:"typ"`
}

type TokenPair struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func tokenSecret() []byte {
	return []byte(viper.GetString("security.jwt_secret"))
}

func signToken(account models.Account, kind string, ttl time.Duration) (string, error) {
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.Name,
			ID:        strconv.Itoa(int(account.ID)) + "-" + strconv.FormatInt(time.Now().UnixNano(), 36),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
		AccountID: account.ID,
		Type:      kind,
	}
	if kind == TokenTypeAccess {
		claims.Role = account.Role
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tokenSecret())
}

func NewTokenPair(account models.Account) (TokenPair, error) {
	accessTTL := viper.GetDuration("security.access_ttl")
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	refreshTTL := viper.GetDuration("security.refresh_ttl")
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}

	access, err := signToken(account, TokenTypeAccess, accessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("unable to sign access token: %v", err)
	}
	refresh, err := signToken(account, TokenTypeRefresh, refreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("unable to sign refresh token: %v", err)
	}

	return TokenPair{
		ID:           account.ID,
		Name:         account.Name,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

func ParseToken(token string, kind string) (TokenClaims, error) {
	var claims TokenClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return tokenSecret(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return claims, fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}
	if claims.Type != kind {
		return claims, fmt.Errorf("%w: unexpected token type %s", ErrAccessDenied, claims.Type)
	}
	return claims, nil
}

// Authenticate resolves the account an access token was issued for.
func Authenticate(token string) (models.Account, error) {
	claims, err := ParseToken(token, TokenTypeAccess)
	if err != nil {
		return models.Account{}, err
	}
	return GetAccountWithName(database.C, claims.Subject)
}

func Login(name, password string) (TokenPair, error) {
	account, err := CheckAccountPassword(name, password)
	if err != nil {
		return TokenPair{}, err
	}
	return NewTokenPair(account)
}

func RefreshToken(token string) (TokenPair, error) {
	claims, err := ParseToken(token, TokenTypeRefresh)
	if err != nil {
		return TokenPair{}, err
	}

	account, err := GetAccountWithID(database.C, claims.AccountID)
	if err != nil {
		return TokenPair{}, err
	}
	return NewTokenPair(account)
}
