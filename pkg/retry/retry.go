package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// リトライ関連の定数
	DefaultMaxRetries = 3 // 最大リトライ回数

	// バックオフのカスタム設定
	InitialBackoffInterval = 500 * time.Millisecond
	MaxBackoffInterval     = 5 * time.Second
)

// Operation はリトライ可能な処理を表す関数です。成功時は nil を返します。
type Operation func() error

// ShouldRetryFunc はエラーを受け取り、そのエラーがリトライ可能かどうかを判定する関数です。
type ShouldRetryFunc func(error) bool

// NotifyFunc は、リトライの前に、失敗したエラーと次の試行までの待ち時間を受け取ります。
type NotifyFunc func(err error, next time.Duration)

// Config はリトライ動作を設定するための構造体です。
type Config struct {
	MaxRetries      uint64        `yaml:"max_retries"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
}

// DefaultConfig は推奨されるデフォルト設定を返します。
func DefaultConfig() Config {
	return Config{
		MaxRetries:      DefaultMaxRetries,
		InitialInterval: InitialBackoffInterval,
		MaxInterval:     MaxBackoffInterval,
	}
}

// withDefaults は、0以下の間隔をデフォルト値で補います。MaxRetries の 0 は「リトライしない」として扱います。
func (c Config) withDefaults() Config {
	if c.InitialInterval <= 0 {
		c.InitialInterval = InitialBackoffInterval
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = MaxBackoffInterval
	}
	if c.MaxInterval < c.InitialInterval {
		c.MaxInterval = c.InitialInterval
	}
	return c
}

// newBackOffPolicy は、最大リトライ回数とコンテキストを適用した指数バックオフを生成します。
func newBackOffPolicy(ctx context.Context, cfg Config) backoff.BackOffContext {
	cfg = cfg.withDefaults()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialInterval
	b.MaxInterval = cfg.MaxInterval
	// 試行回数で打ち切るため、経過時間による打ち切りは行わない
	b.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(b, cfg.MaxRetries), ctx)
}

// Do は指数バックオフとカスタムエラー判定を使用して操作をリトライします。
func Do(ctx context.Context, cfg Config, operationName string, op Operation, shouldRetryFn ShouldRetryFunc) error {
	return DoNotify(ctx, cfg, operationName, op, shouldRetryFn, nil)
}

// DoNotify は Do と同じですが、リトライのたびに notify を呼び出します。
//
// 返すエラーは次のいずれかで、どれも元のエラーを %w でラップします。
//   - リトライ対象外のエラー: 「致命的なエラーのためリトライを中止」
//   - コンテキストのキャンセル・タイムアウト
//   - 最大リトライ回数への到達
func DoNotify(ctx context.Context, cfg Config, operationName string, op Operation, shouldRetryFn ShouldRetryFunc, notify NotifyFunc) error {
	var (
		lastErr   error
		permanent bool
	)

	// リトライ処理内で実行される実際の操作
	retryableOp := func() error {
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		var pErr *backoff.PermanentError
		if errors.As(err, &pErr) || shouldRetryFn == nil || !shouldRetryFn(err) {
			permanent = true
			return backoff.Permanent(err)
		}
		return err
	}

	var notifyFn backoff.Notify
	if notify != nil {
		notifyFn = func(err error, next time.Duration) { notify(err, next) }
	}

	err := backoff.RetryNotify(retryableOp, newBackOffPolicy(ctx, cfg), notifyFn)
	if err == nil {
		return nil
	}

	switch {
	case permanent:
		return fmt.Errorf("致命的なエラーのためリトライを中止: %w", unwrapPermanent(lastErr))
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return fmt.Errorf("%sに失敗しました: コンテキストタイムアウト/キャンセル: %w", operationName, err)
	default:
		return fmt.Errorf("%sに失敗しました: 最大リトライ回数 (%d回) に到達。最終エラー: %w", operationName, cfg.MaxRetries, lastErr)
	}
}

// unwrapPermanent は、操作自身が backoff.Permanent で包んだエラーから元のエラーを取り出します。
func unwrapPermanent(err error) error {
	var pErr *backoff.PermanentError
	if errors.As(err, &pErr) {
		return pErr.Err
	}
	return err
}
