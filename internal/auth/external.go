package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/authgate/internal/model"
)

// ResolveExternalIdentity は外部IdPで検証済みの識別情報をローカルユーザーに
// 対応付け、トークンを発行する。
// メールアドレスでの検索がヒットしない場合はパスワードハッシュを持たない
// 新規ユーザーを作成する。既存ユーザーの場合はレコードを上書きせず、
// 外部IDが未設定であればバックフィルのみ行う。
func (s *Service) ResolveExternalIdentity(ctx context.Context, identity *ExternalIdentity) (*model.User, string, error) {
	if identity == nil || identity.Email == "" || identity.SubjectID == "" {
		return nil, "", model.NewValidationError("外部IdPの識別情報が不完全です。")
	}

	email := normalizeEmail(identity.Email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to find user: %w", err)
	}

	created := false
	if user == nil {
		now := time.Now()
		newUser := &model.User{
			ID:        uuid.New().String(),
			Name:      identity.Name,
			Email:     email,
			GoogleID:  identity.SubjectID,
			CreatedAt: now,
			UpdatedAt: now,
		}

		switch err := s.users.Create(ctx, newUser); {
		case err == nil:
			user = newUser
			created = true

			slog.Info("new user created from external identity",
				slog.String("user_id", user.ID),
				slog.String("email", email),
			)
		case errors.Is(err, model.ErrDuplicateEmail):
			// 同時コールバックで他方が先に作成した場合は一意制約で検出される。
			// 作成済みのレコードを引き直して既存ユーザーとして続行する。
			user, err = s.users.FindByEmail(ctx, email)
			if err != nil {
				return nil, "", fmt.Errorf("failed to find user after create conflict: %w", err)
			}
			if user == nil {
				return nil, "", fmt.Errorf("user disappeared after create conflict: %s", email)
			}
		default:
			return nil, "", fmt.Errorf("failed to create user: %w", err)
		}
	}

	if !created {
		if user.GoogleID == "" {
			if err := s.users.SetGoogleID(ctx, user.ID, identity.SubjectID); err != nil {
				return nil, "", fmt.Errorf("failed to link external identity: %w", err)
			}
			user.GoogleID = identity.SubjectID
		}

		slog.Info("existing user logged in via external identity",
			slog.String("user_id", user.ID),
		)
	}

	tokenString, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	return user, tokenString, nil
}
