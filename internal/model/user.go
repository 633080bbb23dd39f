// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// PasswordHashはメール/パスワード登録ユーザーのみ保持し、
// Google経由のユーザーはGoogleIDのみを保持する（両方持つ場合もある）。
// どちらも持たないレコードはスキーマのCHECK制約で禁止される。
type User struct {
	ID           string
	Name         string
	Username     string
	Email        string
	GoogleID     string
	PasswordHash string
	MobileNumber string
	Image        string
	Gender       string
	DOB          string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProfileUpdate はプロフィール更新で変更可能なフィールドの集合。
// nilのフィールドは「指定なし」を意味し、更新では現在の値を維持する。
// EmailとPasswordHashはこの経路では変更できない。
type ProfileUpdate struct {
	Name         *string
	Username     *string
	MobileNumber *string
	Image        *string
	Gender       *string
	DOB          *string
}

// OneTimePasscode はパスワードリセット用の一時コードを表す。
// 同一メールアドレスに対して有効なコードは常に1つだけ存在する。
type OneTimePasscode struct {
	Email     string
	Code      string
	ExpiresAt time.Time
	CreatedAt time.Time
}
