package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Open は接続URLからPostgreSQLの接続プールを生成する。
// sql.Openはこの時点では接続しないので、到達確認が必要な場合は
// 呼び出し側でPingすること。
func Open(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}
