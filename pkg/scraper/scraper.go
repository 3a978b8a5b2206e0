package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shouni/go-web-reader/pkg/types"
)

const (
	// DefaultMaxConcurrency は、並列スクレイピングのデフォルトの最大同時実行数を定義します。
	DefaultMaxConcurrency = 6
	// DefaultScrapeRateLimit は、リクエストを開始する最小間隔のデフォルト値です。
	DefaultScrapeRateLimit = 1000 * time.Millisecond
)

// Parser は、URLから記事を抽出する処理を表します。*client.Client はこのインターフェースを満たします。
type Parser interface {
	Parse(ctx context.Context, url string) (*types.ParseResult, error)
}

// Scraper はWebコンテンツの抽出機能を提供するインターフェースです。
type Scraper interface {
	ScrapeInParallel(ctx context.Context, urls []string) []types.URLResult
}

// ParallelScraper は Scraper インターフェースを実装する並列処理構造体です。
type ParallelScraper struct {
	parser         Parser
	maxConcurrency int           // 最大並列数を保持するフィールド
	rateLimit      time.Duration // リクエスト開始の最小間隔。0以下なら制限しない
	logger         zerolog.Logger
}

// Option は ParallelScraper の設定を行うための関数型です。
type Option func(*ParallelScraper)

// WithRateLimit は、リクエストを開始する最小間隔を設定します。0以下の値は制限なしを意味します。
func WithRateLimit(d time.Duration) Option {
	return func(s *ParallelScraper) { s.rateLimit = d }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *ParallelScraper) { s.logger = logger }
}

// NewParallelScraper は ParallelScraper を初期化します。
// 依存性として Parser と、最大同時実行数を受け取ります。
func NewParallelScraper(parser Parser, maxConcurrency int, opts ...Option) *ParallelScraper {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	s := &ParallelScraper{
		parser:         parser,
		maxConcurrency: maxConcurrency,
		rateLimit:      DefaultScrapeRateLimit,
		logger:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScrapeInParallel は Scraper インターフェースのメソッドを実装します。
// 結果は入力と同じ順序で返します。1件の失敗やパニックは、その URLResult の Error になります。
func (s *ParallelScraper) ScrapeInParallel(ctx context.Context, urls []string) []types.URLResult {
	results := make([]types.URLResult, len(urls))
	var wg sync.WaitGroup

	// バッファ付きチャネルをセマフォとして使用し、同時実行数を制限する
	semaphore := make(chan struct{}, s.maxConcurrency)

	var rateLimiter <-chan time.Time
	if s.rateLimit > 0 {
		ticker := time.NewTicker(s.rateLimit)
		defer ticker.Stop()
		rateLimiter = ticker.C
	}

	for i, url := range urls {
		// リソース（スロット）の確保。maxConcurrency件実行中の場合はここでブロックして待機。
		select {
		case semaphore <- struct{}{}:
		case <-ctx.Done():
			results[i] = types.URLResult{URL: url, Error: types.NewParseError(types.ErrContext, "Scrape", url, ctx.Err())}
			continue
		}

		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			// 処理完了後にリソース（スロット）を解放。他の待機中のGoroutineが実行可能になる。
			defer func() { <-semaphore }()

			if rateLimiter != nil && i > 0 {
				select {
				case <-rateLimiter:
					// レートリミット間隔が経過し、リクエストが許可された
				case <-ctx.Done():
					results[i] = types.URLResult{URL: u, Error: types.NewParseError(types.ErrContext, "Scrape", u, ctx.Err())}
					return
				}
			}

			results[i] = s.scrapeOne(ctx, u)
		}(i, url)
	}

	wg.Wait()
	return results
}

// scrapeOne は1件のURLを処理します。パニックは ErrInternal のエラーに変換します。
func (s *ParallelScraper) scrapeOne(ctx context.Context, u string) (res types.URLResult) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error().Interface("panic", rec).Str("url", u).Msg("抽出中にパニックが発生しました")
			res = types.URLResult{URL: u, Error: types.NewParseError(types.ErrInternal, "Scrape", u, fmt.Errorf("panic: %v", rec))}
		}
	}()

	result, err := s.parser.Parse(ctx, u)
	if err != nil {
		s.logger.Debug().Err(err).Str("url", u).Msg("抽出に失敗しました")
		return types.URLResult{URL: u, Error: fmt.Errorf("コンテンツの抽出に失敗しました: %w", err)}
	}
	if result == nil || result.IsEmpty() {
		// 本文が見つからなかった場合を抽出失敗と判断
		return types.URLResult{URL: u, Error: types.NewParseError(types.ErrExtract, "Scrape", u,
			errors.New("有効な本文を抽出できませんでした"))}
	}
	return types.URLResult{URL: u, Result: result}
}
