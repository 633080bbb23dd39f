// Package otp はパスワードリセット用ワンタイムパスコードの発行と検証を提供する。
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/hitoshi/authgate/internal/model"
	"github.com/hitoshi/authgate/internal/repository"
)

// codeSpace は6桁コードの取りうる値の数（000000〜999999）。
var codeSpace = big.NewInt(1000000)

// Config はOTPマネージャーの設定。
type Config struct {
	TTL time.Duration // パスコードの有効期間
}

// Manager はワンタイムパスコードのライフサイクルを管理する。
// 同一メールアドレスへの発行は既存コードを原子的に置き換えるため、
// 同時に有効なコードは常に1つだけになる。
type Manager struct {
	repo     repository.PasscodeRepository
	notifier Notifier
	config   Config
	now      func() time.Time
}

// NewManager はManagerを生成する。
func NewManager(repo repository.PasscodeRepository, notifier Notifier, config Config) *Manager {
	return &Manager{
		repo:     repo,
		notifier: notifier,
		config:   config,
		now:      time.Now,
	}
}

// NewManagerWithClock は時刻取得関数を差し替えたManagerを生成する。
// 有効期限のテスト用。
func NewManagerWithClock(repo repository.PasscodeRepository, notifier Notifier, config Config, now func() time.Time) *Manager {
	m := NewManager(repo, notifier, config)
	m.now = now
	return m
}

// Issue は一様乱数の6桁コードを生成し、既存コードを置き換えて保存したうえで
// 通知コラボレーターに引き渡す。生成したコードを返す。
// コード自体をAPIレスポンスに含めるのは呼び出し側の責任で禁止される。
func (m *Manager) Issue(ctx context.Context, email string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate passcode: %w", err)
	}

	passcode := &model.OneTimePasscode{
		Email:     email,
		Code:      code,
		ExpiresAt: m.now().Add(m.config.TTL),
		CreatedAt: m.now(),
	}

	if err := m.repo.Replace(ctx, passcode); err != nil {
		return "", fmt.Errorf("failed to store passcode: %w", err)
	}

	if err := m.notifier.Send(ctx, email, code); err != nil {
		return "", fmt.Errorf("failed to dispatch passcode: %w", err)
	}

	slog.Info("passcode issued", slog.String("email", email))
	return code, nil
}

// Validate はメールアドレスとコードの組を検証する。
// 保存されたコードが存在しない、完全一致しない、または期限切れの場合はfalseを返す。
// 検証成功後のコード削除は呼び出し側がPurgeで行う。
func (m *Manager) Validate(ctx context.Context, email, code string) (bool, error) {
	stored, err := m.repo.FindByEmailAndCode(ctx, email, code)
	if err != nil {
		return false, fmt.Errorf("failed to look up passcode: %w", err)
	}
	if stored == nil {
		return false, nil
	}
	if m.now().After(stored.ExpiresAt) {
		return false, nil
	}
	return true, nil
}

// Purge は指定メールアドレスのパスコードを全て削除する。
// リセット成功後の再利用防止に使用する。
func (m *Manager) Purge(ctx context.Context, email string) error {
	if err := m.repo.DeleteByEmail(ctx, email); err != nil {
		return fmt.Errorf("failed to purge passcodes: %w", err)
	}
	return nil
}

// generateCode は000000〜999999の一様乱数コードを左ゼロ埋めで生成する。
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
