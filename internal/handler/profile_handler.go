package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/authgate/internal/middleware"
	"github.com/hitoshi/authgate/internal/model"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	Profile(ctx context.Context, userID string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID string, update model.ProfileUpdate) (*model.User, error)
	GetUserByID(ctx context.Context, callerID, targetID string) (*model.User, error)
}

// ProfileHandler は認証必須のプロフィール関連HTTPハンドラー。
type ProfileHandler struct {
	service ProfileServiceInterface
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// Profile は認証済みユーザー自身のプロフィールを返す。
// GET /auth/profile
func (h *ProfileHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenInvalidError())
		return
	}

	user, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user": toUserPayload(user),
	})
}

// updateProfileRequest はPUT /auth/profile/updateのリクエストボディ。
// ポインタ型のため、ボディに現れないフィールドはnilのまま「指定なし」として
// 扱われ、更新されない。emailとpasswordのフィールドは定義されないため、
// 送られてきても無視される。
type updateProfileRequest struct {
	Name         *string `json:"name"`
	Username     *string `json:"username"`
	MobileNumber *string `json:"mobileNumber"`
	Image        *string `json:"image"`
	Gender       *string `json:"gender"`
	DOB          *string `json:"dob"`
}

// UpdateProfile はボディに含まれるプロフィールフィールドのみを更新する。
// PUT /auth/profile/update
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenInvalidError())
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeServiceError(w, r, model.NewValidationError("リクエストボディが不正です。"))
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), userID, model.ProfileUpdate{
		Name:         req.Name,
		Username:     req.Username,
		MobileNumber: req.MobileNumber,
		Image:        req.Image,
		Gender:       req.Gender,
		DOB:          req.DOB,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "プロフィールを更新しました。",
		"user":    toUserPayload(user),
	})
}

// GetUserByID は対象ユーザーの公開プロフィールを返す。
// 参照範囲はサービス層のCrossUserLookupポリシーに従う。
// GET /auth/user/{id}
func (h *ProfileHandler) GetUserByID(w http.ResponseWriter, r *http.Request) {
	callerID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenInvalidError())
		return
	}

	targetID := chi.URLParam(r, "id")
	if targetID == "" {
		writeServiceError(w, r, model.NewValidationError("ユーザーIDが指定されていません。"))
		return
	}

	user, err := h.service.GetUserByID(r.Context(), callerID, targetID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user": toUserPayload(user),
	})
}

// Logout はログアウトの確認応答のみを返す。
// トークンは自己完結型で失効リストを持たないため、発行済みトークンは
// 有効期限まで検証に通り続ける（advisory-only、DESIGN.md参照）。
// GET /auth/logout
func (h *ProfileHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "ログアウトしました。",
	})
}
