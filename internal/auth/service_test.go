package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/authgate/internal/model"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByEmailFn   func(ctx context.Context, email string) (*model.User, error)
	findByIDFn      func(ctx context.Context, id string) (*model.User, error)
	createFn        func(ctx context.Context, user *model.User) error
	updateProfileFn func(ctx context.Context, id string, update model.ProfileUpdate) (*model.User, error)
	setPasswordFn   func(ctx context.Context, email, hash string) error
	setGoogleIDFn   func(ctx context.Context, id, googleID string) error
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, id string, update model.ProfileUpdate) (*model.User, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, id, update)
	}
	return nil, nil
}

func (m *mockUserRepo) SetPassword(ctx context.Context, email, hash string) error {
	if m.setPasswordFn != nil {
		return m.setPasswordFn(ctx, email, hash)
	}
	return nil
}

func (m *mockUserRepo) SetGoogleID(ctx context.Context, id, googleID string) error {
	if m.setGoogleIDFn != nil {
		return m.setGoogleIDFn(ctx, id, googleID)
	}
	return nil
}

// fakeHasher はbcryptのコストを避けるためのテスト用ハッシュ実装。
type fakeHasher struct{}

func (fakeHasher) Hash(plaintext string) (string, error) {
	return "hashed:" + plaintext, nil
}

func (fakeHasher) Verify(plaintext, digest string) bool {
	return digest == "hashed:"+plaintext
}

type fakeIssuer struct {
	issueFn func(userID string) (string, error)
}

func (f *fakeIssuer) Issue(userID string) (string, error) {
	if f.issueFn != nil {
		return f.issueFn(userID)
	}
	return "token-for-" + userID, nil
}

type mockOTPManager struct {
	issueFn    func(ctx context.Context, email string) (string, error)
	validateFn func(ctx context.Context, email, code string) (bool, error)
	purgeFn    func(ctx context.Context, email string) error
}

func (m *mockOTPManager) Issue(ctx context.Context, email string) (string, error) {
	if m.issueFn != nil {
		return m.issueFn(ctx, email)
	}
	return "123456", nil
}

func (m *mockOTPManager) Validate(ctx context.Context, email, code string) (bool, error) {
	if m.validateFn != nil {
		return m.validateFn(ctx, email, code)
	}
	return false, nil
}

func (m *mockOTPManager) Purge(ctx context.Context, email string) error {
	if m.purgeFn != nil {
		return m.purgeFn(ctx, email)
	}
	return nil
}

func newTestService(users *mockUserRepo, otp *mockOTPManager) *Service {
	if users == nil {
		users = &mockUserRepo{}
	}
	if otp == nil {
		otp = &mockOTPManager{}
	}
	return NewService(users, fakeHasher{}, &fakeIssuer{}, otp,
		ServiceConfig{CrossUserLookup: true})
}

func validRegisterInput() RegisterInput {
	return RegisterInput{
		Name:            "U",
		Username:        "u",
		Email:           "u@test.com",
		Password:        "Secret123",
		ConfirmPassword: "Secret123",
		MobileNumber:    "555",
	}
}

func apiErrCode(t *testing.T, err error) string {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	return apiErr.Code
}

// --- Register ---

// 登録成功時にユーザーとトークンが返り、保存されるパスワードが平文でないことを検証
func TestService_Register_Success(t *testing.T) {
	var created *model.User
	users := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	s := newTestService(users, nil)

	user, tokenString, err := s.Register(context.Background(), validRegisterInput())
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if created == nil {
		t.Fatal("expected user to be created")
	}
	if created.PasswordHash == "Secret123" {
		t.Error("stored password must never equal the submitted plaintext")
	}
	if created.Email != "u@test.com" {
		t.Errorf("email = %q, want %q", created.Email, "u@test.com")
	}
	if user.ID == "" {
		t.Error("expected a generated user ID")
	}
	if tokenString != "token-for-"+user.ID {
		t.Errorf("token = %q, want issued for user ID", tokenString)
	}
}

// 必須フィールド欠落でValidationErrorになることを検証
func TestService_Register_MissingFields(t *testing.T) {
	s := newTestService(nil, nil)

	cases := []func(*RegisterInput){
		func(in *RegisterInput) { in.Name = "" },
		func(in *RegisterInput) { in.Username = "" },
		func(in *RegisterInput) { in.Email = "" },
		func(in *RegisterInput) { in.Password = "" },
		func(in *RegisterInput) { in.ConfirmPassword = "" },
		func(in *RegisterInput) { in.MobileNumber = "" },
	}

	for i, mutate := range cases {
		input := validRegisterInput()
		mutate(&input)
		_, _, err := s.Register(context.Background(), input)
		if code := apiErrCode(t, err); code != model.ErrCodeValidation {
			t.Errorf("case %d: code = %q, want VALIDATION_ERROR", i, code)
		}
	}
}

// 空白のみのメールアドレスがValidationErrorになり、保存されないことを検証
func TestService_Register_WhitespaceOnlyEmail(t *testing.T) {
	users := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			t.Errorf("user must not be created, got email %q", user.Email)
			return nil
		},
	}
	s := newTestService(users, nil)

	input := validRegisterInput()
	input.Email = "   "

	_, _, err := s.Register(context.Background(), input)
	if code := apiErrCode(t, err); code != model.ErrCodeValidation {
		t.Errorf("code = %q, want VALIDATION_ERROR", code)
	}
}

// パスワード不一致でValidationErrorになることを検証
func TestService_Register_PasswordMismatch(t *testing.T) {
	s := newTestService(nil, nil)

	input := validRegisterInput()
	input.ConfirmPassword = "Different123"

	_, _, err := s.Register(context.Background(), input)
	if code := apiErrCode(t, err); code != model.ErrCodeValidation {
		t.Errorf("code = %q, want VALIDATION_ERROR", code)
	}
}

// ストアの一意制約違反がDuplicateEmailに変換されることを検証
func TestService_Register_DuplicateEmail(t *testing.T) {
	users := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			return model.ErrDuplicateEmail
		},
	}
	s := newTestService(users, nil)

	_, _, err := s.Register(context.Background(), validRegisterInput())
	if code := apiErrCode(t, err); code != model.ErrCodeDuplicateEmail {
		t.Errorf("code = %q, want DUPLICATE_EMAIL", code)
	}
}

// メールアドレスが小文字に正規化されて保存されることを検証
func TestService_Register_NormalizesEmail(t *testing.T) {
	var created *model.User
	users := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	s := newTestService(users, nil)

	input := validRegisterInput()
	input.Email = "  U@Test.COM "

	if _, _, err := s.Register(context.Background(), input); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if created.Email != "u@test.com" {
		t.Errorf("email = %q, want normalized %q", created.Email, "u@test.com")
	}
}

// --- Login ---

// 正しい認証情報でログインが成功することを検証
func TestService_Login_Success(t *testing.T) {
	users := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{
				ID:           "user-id-1",
				Email:        email,
				PasswordHash: "hashed:Secret123",
			}, nil
		},
	}
	s := newTestService(users, nil)

	user, tokenString, err := s.Login(context.Background(), "u@test.com", "Secret123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if user.ID != "user-id-1" {
		t.Errorf("user.ID = %q, want %q", user.ID, "user-id-1")
	}
	if tokenString != "token-for-user-id-1" {
		t.Errorf("token = %q, want %q", tokenString, "token-for-user-id-1")
	}
}

// 入力欠落でValidationErrorになることを検証
func TestService_Login_MissingInput(t *testing.T) {
	s := newTestService(nil, nil)

	_, _, err := s.Login(context.Background(), "", "Secret123")
	if code := apiErrCode(t, err); code != model.ErrCodeValidation {
		t.Errorf("code = %q, want VALIDATION_ERROR", code)
	}

	_, _, err = s.Login(context.Background(), "u@test.com", "")
	if code := apiErrCode(t, err); code != model.ErrCodeValidation {
		t.Errorf("code = %q, want VALIDATION_ERROR", code)
	}
}

// 未登録メールアドレスでUserNotFoundになることを検証
func TestService_Login_UserNotFound(t *testing.T) {
	s := newTestService(&mockUserRepo{}, nil)

	_, _, err := s.Login(context.Background(), "nobody@test.com", "Secret123")
	if code := apiErrCode(t, err); code != model.ErrCodeUserNotFound {
		t.Errorf("code = %q, want USER_NOT_FOUND", code)
	}
}

// パスワード不一致でInvalidCredentialsになることを検証
func TestService_Login_WrongPassword(t *testing.T) {
	users := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: "user-id-1", PasswordHash: "hashed:Secret123"}, nil
		},
	}
	s := newTestService(users, nil)

	_, _, err := s.Login(context.Background(), "u@test.com", "WrongPassword")
	if code := apiErrCode(t, err); code != model.ErrCodeInvalidCredentials {
		t.Errorf("code = %q, want INVALID_CREDENTIALS", code)
	}
}

// Google経由のみのアカウントがパスワードログインを拒否されることを検証
func TestService_Login_ExternalOnlyAccount(t *testing.T) {
	users := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: "user-id-1", GoogleID: "google-sub-1"}, nil
		},
	}
	s := newTestService(users, nil)

	_, _, err := s.Login(context.Background(), "u@test.com", "anything")
	if code := apiErrCode(t, err); code != model.ErrCodeInvalidCredentials {
		t.Errorf("code = %q, want INVALID_CREDENTIALS", code)
	}
}

// --- ForgotPassword / ResetPassword ---

// 未登録メールアドレスへのリセット要求がUserNotFoundになることを検証
func TestService_ForgotPassword_UserNotFound(t *testing.T) {
	s := newTestService(&mockUserRepo{}, nil)

	err := s.ForgotPassword(context.Background(), "nobody@test.com")
	if code := apiErrCode(t, err); code != model.ErrCodeUserNotFound {
		t.Errorf("code = %q, want USER_NOT_FOUND", code)
	}
}

// リセット要求でOTPが正規化済みメールアドレス宛に発行されることを検証
func TestService_ForgotPassword_IssuesOTP(t *testing.T) {
	users := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: "user-id-1", Email: email}, nil
		},
	}
	var issuedFor string
	otpMgr := &mockOTPManager{
		issueFn: func(ctx context.Context, email string) (string, error) {
			issuedFor = email
			return "123456", nil
		},
	}
	s := newTestService(users, otpMgr)

	if err := s.ForgotPassword(context.Background(), "U@Test.com"); err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}
	if issuedFor != "u@test.com" {
		t.Errorf("OTP issued for %q, want %q", issuedFor, "u@test.com")
	}
}

// 正しいOTPでパスワードが更新され、コードが破棄されることを検証
func TestService_ResetPassword_Success(t *testing.T) {
	var setEmail, setHash string
	users := &mockUserRepo{
		setPasswordFn: func(ctx context.Context, email, hash string) error {
			setEmail, setHash = email, hash
			return nil
		},
	}
	purged := false
	otpMgr := &mockOTPManager{
		validateFn: func(ctx context.Context, email, code string) (bool, error) {
			return email == "u@test.com" && code == "123456", nil
		},
		purgeFn: func(ctx context.Context, email string) error {
			purged = true
			return nil
		},
	}
	s := newTestService(users, otpMgr)

	err := s.ResetPassword(context.Background(), "u@test.com", "123456", "NewSecret1", "NewSecret1")
	if err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	if setEmail != "u@test.com" {
		t.Errorf("password set for %q, want %q", setEmail, "u@test.com")
	}
	if setHash == "NewSecret1" {
		t.Error("stored password must never equal the submitted plaintext")
	}
	if !purged {
		t.Error("passcodes should be purged after successful reset")
	}
}

// OTP不一致でOtpInvalidになり、パスワードが変更されないことを検証
func TestService_ResetPassword_InvalidOTP(t *testing.T) {
	passwordChanged := false
	users := &mockUserRepo{
		setPasswordFn: func(ctx context.Context, email, hash string) error {
			passwordChanged = true
			return nil
		},
	}
	s := newTestService(users, &mockOTPManager{})

	err := s.ResetPassword(context.Background(), "u@test.com", "000000", "NewSecret1", "NewSecret1")
	if code := apiErrCode(t, err); code != model.ErrCodeOtpInvalid {
		t.Errorf("code = %q, want OTP_INVALID", code)
	}
	if passwordChanged {
		t.Error("password must not change when OTP is invalid")
	}
}

// パスワード不一致でValidationErrorになることを検証
func TestService_ResetPassword_PasswordMismatch(t *testing.T) {
	s := newTestService(nil, nil)

	err := s.ResetPassword(context.Background(), "u@test.com", "123456", "NewSecret1", "Different1")
	if code := apiErrCode(t, err); code != model.ErrCodeValidation {
		t.Errorf("code = %q, want VALIDATION_ERROR", code)
	}
}

// --- Profile ---

// ID解決失敗時にUserNotFoundになることを検証
func TestService_Profile_UserNotFound(t *testing.T) {
	s := newTestService(&mockUserRepo{}, nil)

	_, err := s.Profile(context.Background(), "gone-user-id")
	if code := apiErrCode(t, err); code != model.ErrCodeUserNotFound {
		t.Errorf("code = %q, want USER_NOT_FOUND", code)
	}
}

// プロフィール更新が指定されたフィールドのみをストアに渡すことを検証
func TestService_UpdateProfile_PassesOnlySpecifiedFields(t *testing.T) {
	mobile := "999"
	var gotUpdate model.ProfileUpdate
	users := &mockUserRepo{
		updateProfileFn: func(ctx context.Context, id string, update model.ProfileUpdate) (*model.User, error) {
			gotUpdate = update
			return &model.User{ID: id, MobileNumber: mobile}, nil
		},
	}
	s := newTestService(users, nil)

	user, err := s.UpdateProfile(context.Background(), "user-id-1", model.ProfileUpdate{MobileNumber: &mobile})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if gotUpdate.MobileNumber == nil || *gotUpdate.MobileNumber != "999" {
		t.Errorf("mobileNumber = %v, want %q", gotUpdate.MobileNumber, "999")
	}
	// 指定しなかったフィールドはnilのまま（=更新対象外）であること
	if gotUpdate.Name != nil || gotUpdate.Username != nil || gotUpdate.Image != nil {
		t.Errorf("unspecified fields must stay nil, got %+v", gotUpdate)
	}
	if user.MobileNumber != "999" {
		t.Errorf("returned mobileNumber = %q, want %q", user.MobileNumber, "999")
	}
}

// --- GetUserByID ---

// CrossUserLookup有効時に他ユーザーのプロフィールを取得できることを検証
func TestService_GetUserByID_CrossUserAllowed(t *testing.T) {
	users := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id}, nil
		},
	}
	s := newTestService(users, nil)

	user, err := s.GetUserByID(context.Background(), "caller-id", "target-id")
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if user.ID != "target-id" {
		t.Errorf("user.ID = %q, want %q", user.ID, "target-id")
	}
}

// CrossUserLookup無効時に他ユーザーのIDがUserNotFoundで拒否されることを検証
func TestService_GetUserByID_CrossUserDenied(t *testing.T) {
	users := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id}, nil
		},
	}
	s := NewService(users, fakeHasher{}, &fakeIssuer{}, &mockOTPManager{},
		ServiceConfig{CrossUserLookup: false})

	_, err := s.GetUserByID(context.Background(), "caller-id", "target-id")
	if code := apiErrCode(t, err); code != model.ErrCodeUserNotFound {
		t.Errorf("code = %q, want USER_NOT_FOUND", code)
	}

	// 自分自身のIDは許可される
	user, err := s.GetUserByID(context.Background(), "caller-id", "caller-id")
	if err != nil {
		t.Fatalf("self lookup failed: %v", err)
	}
	if user.ID != "caller-id" {
		t.Errorf("user.ID = %q, want %q", user.ID, "caller-id")
	}
}
