package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/authgate/internal/model"
)

// uniqueViolation はPostgreSQLのunique_violationエラーコード。
const uniqueViolation = "23505"

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, name, username, email,
	COALESCE(google_id, ''), COALESCE(password_hash, ''),
	mobile_number, image, gender, dob, created_at, updated_at`

// scanUser は1行をmodel.Userに読み込む。
func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.Name, &user.Username, &user.Email,
		&user.GoogleID, &user.PasswordHash,
		&user.MobileNumber, &user.Image, &user.Gender, &user.DOB,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		email,
	)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// Create はユーザーを作成する。
// users.emailのUNIQUE制約違反はmodel.ErrDuplicateEmailに変換する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, username, email, google_id, password_hash,
		                    mobile_number, image, gender, dob, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9, $10, $11, $12)`,
		user.ID, user.Name, user.Username, user.Email, user.GoogleID, user.PasswordHash,
		user.MobileNumber, user.Image, user.Gender, user.DOB, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return model.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// UpdateProfile はプロフィールフィールドのみを更新し、更新後のユーザーを返す。
// nilのフィールドはCOALESCEで現在の値を維持する（部分更新）。
// emailとpassword_hashはUPDATE文に含めない。対象が存在しない場合はnilを返す。
func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, id string, update model.ProfileUpdate) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE users
		 SET name = COALESCE($2, name),
		     username = COALESCE($3, username),
		     mobile_number = COALESCE($4, mobile_number),
		     image = COALESCE($5, image),
		     gender = COALESCE($6, gender),
		     dob = COALESCE($7, dob),
		     updated_at = now()
		 WHERE id = $1
		 RETURNING `+userColumns,
		id, update.Name, update.Username, update.MobileNumber,
		update.Image, update.Gender, update.DOB,
	)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

// SetPassword は指定メールアドレスのユーザーのパスワードハッシュを更新する。
func (r *PostgresUserRepo) SetPassword(ctx context.Context, email, passwordHash string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE email = $1`,
		email, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", email)
	}
	return nil
}

// SetGoogleID は既存ユーザーにGoogleのsubject IDを紐付ける。
// 既に設定済みの場合は上書きしない。
func (r *PostgresUserRepo) SetGoogleID(ctx context.Context, id, googleID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET google_id = $2, updated_at = now()
		 WHERE id = $1 AND google_id IS NULL`,
		id, googleID,
	)
	if err != nil {
		return fmt.Errorf("failed to set google ID: %w", err)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
