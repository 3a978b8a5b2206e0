package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/shouni/go-web-reader/pkg/client"
	"github.com/shouni/go-web-reader/pkg/httpclient"
	"github.com/shouni/go-web-reader/pkg/retry"
	"github.com/shouni/go-web-reader/pkg/types"
)

// Parser は、URLから記事を抽出する処理を表します。*client.Client はこのインターフェースを満たします。
type Parser interface {
	Parse(ctx context.Context, url string) (*types.ParseResult, error)
}

// IsRetryable は、タイムアウトと、一時的なサーバーエラー (5xx, 429) による取得失敗だけを true とします。
func IsRetryable(err error) bool {
	if types.IsCode(err, types.ErrTimeout) {
		return true
	}
	return types.IsCode(err, types.ErrFetch) && httpclient.IsRetryableStatus(err)
}

// ParseWithRetry は、一時的なエラーの場合に指数バックオフでリトライしながら記事を抽出します。
// リトライの経過は ctx に紐づいた zerolog のロガーに出力します。
func ParseWithRetry(ctx context.Context, p Parser, url string, cfg retry.Config) (*types.ParseResult, error) {
	logger := zerolog.Ctx(ctx)

	var result *types.ParseResult
	op := func() error {
		r, err := p.Parse(ctx, url)
		if err != nil {
			return err
		}
		result = r
		return nil
	}
	notify := func(err error, next time.Duration) {
		logger.Warn().Err(err).Str("url", url).Dur("retry_in", next).Msg("一時的なエラーのためリトライします")
	}

	if err := retry.DoNotify(ctx, cfg, "記事の抽出", op, IsRetryable, notify); err != nil {
		return nil, err
	}
	return result, nil
}

// RetryingParser は、Parser の呼び出しを ParseWithRetry でリトライする Parser です。
type RetryingParser struct {
	Parser Parser
	Config retry.Config
}

func (r RetryingParser) Parse(ctx context.Context, url string) (*types.ParseResult, error) {
	return ParseWithRetry(ctx, r.Parser, url, r.Config)
}

// ExtractURLContent は、URLから記事を取得し、抽出結果を返すメインの処理パイプラインです。
// overallTimeout は、リトライを含めた全体の制限時間です。
func ExtractURLContent(ctx context.Context, rawURL string, overallTimeout time.Duration, cfg retry.Config, opts ...client.Option) (*types.ParseResult, error) {
	// 1. クライアントを初期化
	c := client.New(opts...)

	// 2. 全体処理のコンテキストを設定
	if overallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, overallTimeout)
		defer cancel()
	}

	// 3. 抽出の実行
	result, err := ParseWithRetry(ctx, c, rawURL, cfg)
	if err != nil {
		return nil, fmt.Errorf("コンテンツ抽出エラー: %w", err)
	}
	return result, nil
}
