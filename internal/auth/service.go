// Package auth は登録・ログイン・パスワードリセット・プロフィールの
// 各認証フローのビジネスロジックを提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/authgate/internal/model"
	"github.com/hitoshi/authgate/internal/repository"
)

// TokenIssuer はセッショントークンの発行インターフェース。
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// PasswordHasher はパスワードのハッシュ化・検証インターフェース。
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// OTPManager はワンタイムパスコードの発行・検証インターフェース。
type OTPManager interface {
	Issue(ctx context.Context, email string) (string, error)
	Validate(ctx context.Context, email, code string) (bool, error)
	Purge(ctx context.Context, email string) error
}

// ServiceConfig は認証サービスのポリシー設定。
type ServiceConfig struct {
	// CrossUserLookupがtrueの場合、GetUserByIDは任意の認証済みユーザーに
	// 他ユーザーの公開プロフィールを返す。
	CrossUserLookup bool
}

// Service は認証フローを統括する。各フローはステートレスで、
// リクエストをまたぐ状態はストアのみが持つ。
type Service struct {
	users  repository.UserRepository
	hasher PasswordHasher
	tokens TokenIssuer
	otp    OTPManager
	config ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	users repository.UserRepository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	otp OTPManager,
	config ServiceConfig,
) *Service {
	return &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		otp:    otp,
		config: config,
	}
}

// RegisterInput はユーザー登録の入力。
type RegisterInput struct {
	Name            string
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	MobileNumber    string
	Image           string
	Gender          string
	DOB             string
}

// normalizeEmail はメールアドレスを小文字に正規化する。
// 一意性判定は正規化後の値に対して行われるため、大文字小文字の違いは同一視される。
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register は新規ユーザーを登録し、発行したトークンとともに返す。
// メールアドレスの重複はストアの一意制約違反で検出する。
// 事前の存在チェックでは同時登録のレースを防げない。
func (s *Service) Register(ctx context.Context, input RegisterInput) (*model.User, string, error) {
	// 空白のみのメールアドレスを弾くため、検証は正規化後の値に対して行う
	email := normalizeEmail(input.Email)

	if input.Name == "" || input.Username == "" || email == "" ||
		input.Password == "" || input.ConfirmPassword == "" || input.MobileNumber == "" {
		return nil, "", model.NewValidationError("必須項目が入力されていません。")
	}
	if input.Password != input.ConfirmPassword {
		return nil, "", model.NewValidationError("パスワードが一致しません。")
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Name:         input.Name,
		Username:     input.Username,
		Email:        email,
		PasswordHash: hash,
		MobileNumber: input.MobileNumber,
		Image:        input.Image,
		Gender:       input.Gender,
		DOB:          input.DOB,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, model.ErrDuplicateEmail) {
			return nil, "", model.NewDuplicateEmailError()
		}
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	tokenString, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, tokenString, nil
}

// Login はメールアドレスとパスワードで認証し、トークンを発行する。
// ユーザー未存在とパスワード不一致は内部的に区別され、
// 外部にも別コードで返る（DESIGN.md参照）。
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	normalized := normalizeEmail(email)
	if normalized == "" || password == "" {
		return nil, "", model.NewValidationError("メールアドレスとパスワードは必須です。")
	}

	user, err := s.users.FindByEmail(ctx, normalized)
	if err != nil {
		return nil, "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, "", model.NewUserNotFoundError()
	}

	// Google経由のみのアカウントはパスワードログイン不可
	if user.PasswordHash == "" || !s.hasher.Verify(password, user.PasswordHash) {
		return nil, "", model.NewInvalidCredentialsError()
	}

	tokenString, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))

	return user, tokenString, nil
}

// ForgotPassword はパスワードリセット用のワンタイムコードを発行・配送する。
// コードはレスポンスに含めず、通知コラボレーター経由でのみユーザーに届く。
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	normalized := normalizeEmail(email)
	if normalized == "" {
		return model.NewValidationError("メールアドレスは必須です。")
	}

	user, err := s.users.FindByEmail(ctx, normalized)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	if _, err := s.otp.Issue(ctx, normalized); err != nil {
		return fmt.Errorf("failed to issue passcode: %w", err)
	}

	return nil
}

// ResetPassword はワンタイムコードを検証して新しいパスワードを設定する。
// 成功後は使用されたコードを含め、そのメールアドレスの全コードを破棄する。
func (s *Service) ResetPassword(ctx context.Context, email, code, password, confirmPassword string) error {
	normalized := normalizeEmail(email)
	if normalized == "" || code == "" || password == "" {
		return model.NewValidationError("必須項目が入力されていません。")
	}
	if password != confirmPassword {
		return model.NewValidationError("パスワードが一致しません。")
	}

	valid, err := s.otp.Validate(ctx, normalized, code)
	if err != nil {
		return fmt.Errorf("failed to validate passcode: %w", err)
	}
	if !valid {
		return model.NewOtpInvalidError()
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.SetPassword(ctx, normalized, hash); err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}

	if err := s.otp.Purge(ctx, normalized); err != nil {
		return fmt.Errorf("failed to purge passcodes: %w", err)
	}

	slog.Info("password reset completed", slog.String("email", normalized))

	return nil
}

// Profile は認証済みユーザー自身のレコードを返す。
// トークン検証後にレコードが消えている場合はUserNotFoundを返す。
func (s *Service) Profile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// UpdateProfile はプロフィールフィールドを更新する。
// この経路でのメールアドレス・パスワードの変更は暗黙に無視される
// （入力の段階でProfileUpdateに含まれない）。
func (s *Service) UpdateProfile(ctx context.Context, userID string, update model.ProfileUpdate) (*model.User, error) {
	user, err := s.users.UpdateProfile(ctx, userID, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	slog.Info("profile updated", slog.String("user_id", userID))

	return user, nil
}

// GetUserByID は対象ユーザーの公開プロフィールを返す。
// CrossUserLookupが無効の場合、他ユーザーのIDに対しては存在を漏らさないよう
// UserNotFoundを返す。
func (s *Service) GetUserByID(ctx context.Context, callerID, targetID string) (*model.User, error) {
	if !s.config.CrossUserLookup && callerID != targetID {
		return nil, model.NewUserNotFoundError()
	}

	user, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}
