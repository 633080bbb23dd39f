package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/authgate/internal/model"
)

// PostgresPasscodeRepo はPostgreSQLを使用したワンタイムパスコードリポジトリ。
type PostgresPasscodeRepo struct {
	db *sql.DB
}

// NewPostgresPasscodeRepo はPostgresPasscodeRepoを生成する。
func NewPostgresPasscodeRepo(db *sql.DB) *PostgresPasscodeRepo {
	return &PostgresPasscodeRepo{db: db}
}

// Replace は指定メールアドレスの既存パスコードを全て削除し、
// 新しいパスコードを同一トランザクションで挿入する。
func (r *PostgresPasscodeRepo) Replace(ctx context.Context, passcode *model.OneTimePasscode) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM one_time_passcodes WHERE email = $1`,
		passcode.Email,
	)
	if err != nil {
		return fmt.Errorf("failed to delete existing passcodes: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO one_time_passcodes (email, code, expires_at, created_at)
		 VALUES ($1, $2, $3, $4)`,
		passcode.Email, passcode.Code, passcode.ExpiresAt, passcode.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert passcode: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// FindByEmailAndCode はメールアドレスとコードの完全一致でパスコードを検索する。
// 見つからない場合はnilを返す。
func (r *PostgresPasscodeRepo) FindByEmailAndCode(ctx context.Context, email, code string) (*model.OneTimePasscode, error) {
	passcode := &model.OneTimePasscode{}
	err := r.db.QueryRowContext(ctx,
		`SELECT email, code, expires_at, created_at
		 FROM one_time_passcodes
		 WHERE email = $1 AND code = $2`,
		email, code,
	).Scan(&passcode.Email, &passcode.Code, &passcode.ExpiresAt, &passcode.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find passcode: %w", err)
	}

	return passcode, nil
}

// DeleteByEmail は指定メールアドレスのパスコードを全て削除する。
func (r *PostgresPasscodeRepo) DeleteByEmail(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM one_time_passcodes WHERE email = $1`,
		email,
	)
	if err != nil {
		return fmt.Errorf("failed to delete passcodes: %w", err)
	}
	return nil
}

// compile-time interface check
var _ PasscodeRepository = (*PostgresPasscodeRepo)(nil)
