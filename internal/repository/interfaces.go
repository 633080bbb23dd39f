// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/authgate/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
// 検索は全て完全一致。メールアドレスは呼び出し側で小文字に正規化済みであること。
type UserRepository interface {
	// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// Create はユーザーを作成する。
	// メールアドレスの一意性はストアの制約で保証され、違反時は
	// model.ErrDuplicateEmailを返す。アプリケーション側の存在チェックでは
	// 同時登録の競合を防げないため、制約違反の検出が唯一の判定手段。
	Create(ctx context.Context, user *model.User) error

	// UpdateProfile はプロフィールフィールドのみを更新し、更新後のユーザーを返す。
	// nilのフィールドは現在の値を維持する（部分更新）。
	// emailとpassword_hashはこのメソッドでは変更されない。
	// 対象が存在しない場合はnilを返す。
	UpdateProfile(ctx context.Context, id string, update model.ProfileUpdate) (*model.User, error)

	// SetPassword は指定メールアドレスのユーザーのパスワードハッシュを更新する。
	SetPassword(ctx context.Context, email, passwordHash string) error

	// SetGoogleID は既存ユーザーにGoogleのsubject IDを紐付ける。
	// 既に設定済みの場合は上書きしない。
	SetGoogleID(ctx context.Context, id, googleID string) error
}

// PasscodeRepository はワンタイムパスコードの永続化インターフェース。
type PasscodeRepository interface {
	// Replace は指定メールアドレスの既存パスコードを全て削除し、
	// 新しいパスコードを同一トランザクションで挿入する。
	// 同時発行が競合しても有効なコードが2つ残ることはない。
	Replace(ctx context.Context, passcode *model.OneTimePasscode) error

	// FindByEmailAndCode はメールアドレスとコードの完全一致でパスコードを検索する。
	// 見つからない場合はnilを返す。期限切れ判定は呼び出し側で行う。
	FindByEmailAndCode(ctx context.Context, email, code string) (*model.OneTimePasscode, error)

	// DeleteByEmail は指定メールアドレスのパスコードを全て削除する。
	DeleteByEmail(ctx context.Context, email string) error
}
