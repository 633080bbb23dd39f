package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hitoshi/authgate/internal/auth"
	"github.com/hitoshi/authgate/internal/metrics"
	"github.com/hitoshi/authgate/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, input auth.RegisterInput) (*model.User, string, error)
	Login(ctx context.Context, email, password string) (*model.User, string, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, password, confirmPassword string) error
}

// AuthHandler は登録・ログイン・パスワードリセットのHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	recorder metrics.Recorder
}

// NewAuthHandler はAuthHandlerを生成する。recorderはnil可。
func NewAuthHandler(service AuthServiceInterface, recorder metrics.Recorder) *AuthHandler {
	return &AuthHandler{
		service:  service,
		recorder: recorder,
	}
}

// registerRequest はPOST /auth/registerのリクエストボディ。
type registerRequest struct {
	Name            string `json:"name"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	MobileNumber    string `json:"mobileNumber"`
	Image           string `json:"image"`
	Gender          string `json:"gender"`
	DOB             string `json:"dob"`
}

// Register は新規ユーザーを登録する。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeServiceError(w, r, model.NewValidationError("リクエストボディが不正です。"))
		return
	}

	user, tokenString, err := h.service.Register(r.Context(), auth.RegisterInput{
		Name:            req.Name,
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		MobileNumber:    req.MobileNumber,
		Image:           req.Image,
		Gender:          req.Gender,
		DOB:             req.DOB,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if h.recorder != nil {
		h.recorder.RecordRegistration()
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "ユーザー登録が完了しました。",
		"user":    toUserPayload(user),
		"token":   tokenString,
	})
}

// loginRequest はPOST /auth/loginのリクエストボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login はメールアドレスとパスワードで認証する。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeServiceError(w, r, model.NewValidationError("リクエストボディが不正です。"))
		return
	}

	user, tokenString, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.recordLoginFailure(err)
		writeServiceError(w, r, err)
		return
	}

	if h.recorder != nil {
		h.recorder.RecordLogin("success")
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "ログインしました。",
		"user":    toUserPayload(user),
		"token":   tokenString,
	})
}

// recordLoginFailure はログイン失敗の種別をメトリクスに記録する。
func (h *AuthHandler) recordLoginFailure(err error) {
	if h.recorder == nil {
		return
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		return
	}
	switch apiErr.Code {
	case model.ErrCodeUserNotFound:
		h.recorder.RecordLogin("not_found")
	case model.ErrCodeInvalidCredentials:
		h.recorder.RecordLogin("invalid_credentials")
	}
}

// forgotPasswordRequest はPOST /auth/forgot-passwordのリクエストボディ。
type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword はパスワードリセット用コードを発行する。
// コードはレスポンスに含めない。
// POST /auth/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeServiceError(w, r, model.NewValidationError("リクエストボディが不正です。"))
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}

	if h.recorder != nil {
		h.recorder.RecordOTPIssued()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "ワンタイムコードをメールで送信しました。",
	})
}

// resetPasswordRequest はPOST /auth/reset-passwordのリクエストボディ。
type resetPasswordRequest struct {
	Email           string `json:"email"`
	OTP             string `json:"otp"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ResetPassword はワンタイムコードを検証してパスワードを再設定する。
// POST /auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeServiceError(w, r, model.NewValidationError("リクエストボディが不正です。"))
		return
	}

	err := h.service.ResetPassword(r.Context(), req.Email, req.OTP, req.Password, req.ConfirmPassword)
	if err != nil {
		if h.recorder != nil {
			var apiErr *model.APIError
			if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeOtpInvalid {
				h.recorder.RecordOTPValidation("invalid")
			}
		}
		writeServiceError(w, r, err)
		return
	}

	if h.recorder != nil {
		h.recorder.RecordOTPValidation("success")
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "パスワードを再設定しました。",
	})
}
