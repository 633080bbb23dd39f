// Package token は署名付きセッショントークンの発行と検証を提供する。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/authgate/internal/model"
)

// Config はトークン発行者の設定。
// 署名鍵はプロセス全体の設定として起動時に注入し、リクエストからは導出しない。
type Config struct {
	Secret []byte
	TTL    time.Duration
}

// Issuer はHS256署名のJWTを発行・検証する。
// トークンは自己完結しており、サーバー側に状態を持たない。
// 失効手段は有効期限のみ（ログアウトはトークンを無効化しない）。
type Issuer struct {
	config Config
	now    func() time.Time
}

// NewIssuer はIssuerを生成する。
func NewIssuer(config Config) (*Issuer, error) {
	if len(config.Secret) == 0 {
		return nil, errors.New("token signing secret is required")
	}
	if config.TTL <= 0 {
		return nil, errors.New("token TTL must be positive")
	}
	return &Issuer{
		config: config,
		now:    time.Now,
	}, nil
}

// NewIssuerWithClock は時刻取得関数を差し替えたIssuerを生成する。
// 有効期限のテスト用。
func NewIssuerWithClock(config Config, now func() time.Time) (*Issuer, error) {
	issuer, err := NewIssuer(config)
	if err != nil {
		return nil, err
	}
	issuer.now = now
	return issuer, nil
}

// Issue は指定ユーザーIDを主体とする署名付きトークンを発行する。
// 有効期限は発行時刻 + TTL。
func (i *Issuer) Issue(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("user ID is required")
	}

	now := i.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.config.TTL)),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(i.config.Secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Verify はトークンを検証し、埋め込まれたユーザーIDを返す。
// 署名不一致・構造不正の場合はmodel.ErrTokenInvalid、
// 有効期限切れの場合はmodel.ErrTokenExpiredを返す。
func (i *Issuer) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			return i.config.Secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", model.ErrTokenExpired
		}
		return "", model.ErrTokenInvalid
	}

	if claims.Subject == "" {
		return "", model.ErrTokenInvalid
	}

	return claims.Subject, nil
}
