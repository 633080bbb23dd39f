package otp

import (
	"context"
	"log/slog"
)

// Notifier はパスコードをユーザーに届ける配送手段のインターフェース。
// メール配送等の実装は外部コラボレーターとして注入する。
type Notifier interface {
	// Send は指定メールアドレス宛にパスコードを配送する。
	Send(ctx context.Context, email, code string) error
}

// LogNotifier は配送の代わりにログへ出力するNotifier実装。
// メール基盤が未接続の環境（開発・テスト）用のスタブ。
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier はLogNotifierを生成する。loggerがnilの場合はデフォルトを使用する。
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Send はパスコードをログに出力する。
func (n *LogNotifier) Send(ctx context.Context, email, code string) error {
	n.logger.InfoContext(ctx, "passcode notification (stub)",
		slog.String("email", email),
		slog.String("code", code),
	)
	return nil
}

// compile-time interface check
var _ Notifier = (*LogNotifier)(nil)
