// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/authgate/internal/middleware"
	"github.com/hitoshi/authgate/internal/model"
)

// userPayload はAPIレスポンスに含めるユーザー表現。
// パスワードハッシュは構造上含まれないため、シリアライズ漏れが起きない。
type userPayload struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	GoogleID     string    `json:"googleId,omitempty"`
	MobileNumber string    `json:"mobileNumber"`
	Image        string    `json:"image,omitempty"`
	Gender       string    `json:"gender,omitempty"`
	DOB          string    `json:"dob,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// toUserPayload はドメインモデルをレスポンス表現に変換する。
func toUserPayload(user *model.User) userPayload {
	return userPayload{
		ID:           user.ID,
		Name:         user.Name,
		Username:     user.Username,
		Email:        user.Email,
		GoogleID:     user.GoogleID,
		MobileNumber: user.MobileNumber,
		Image:        user.Image,
		Gender:       user.Gender,
		DOB:          user.DOB,
		CreatedAt:    user.CreatedAt,
	}
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// statusForCode はエラーコードをHTTPステータスコードに対応付ける。
func statusForCode(code string) int {
	switch code {
	case model.ErrCodeValidation, model.ErrCodeOtpInvalid:
		return http.StatusBadRequest
	case model.ErrCodeDuplicateEmail:
		return http.StatusConflict
	case model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidCredentials, model.ErrCodeTokenInvalid, model.ErrCodeTokenExpired:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError はサービス層のエラーをHTTPレスポンスに変換する。
// APIError以外（ストア障害等）は詳細をログに記録し、INTERNAL_ERRORで応答する。
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, statusForCode(apiErr.Code), apiErr)
		return
	}

	slog.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	middleware.WriteInternalServerError(w)
}
