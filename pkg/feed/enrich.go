package feed

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/shouni/go-web-reader/pkg/fields"
	"github.com/shouni/go-web-reader/pkg/httpclient"
)

// DefaultEnrichConcurrency は、メタデータ取得の同時実行数のデフォルト値です。
const DefaultEnrichConcurrency = 4

// PageFetcher は、記事ページを取得する処理を表します。*httpclient.Client はこのインターフェースを満たします。
type PageFetcher interface {
	Fetch(ctx context.Context, url string, opts httpclient.FetchOptions) (*httpclient.FetchResult, error)
}

// Enricher は、フィードの各アイテムのページを取得し、ページのメタデータを付与します。
type Enricher struct {
	fetcher     PageFetcher
	opts        httpclient.FetchOptions
	concurrency int
	logger      zerolog.Logger
}

// EnrichOption は Enricher の設定を行うための関数型です。
type EnrichOption func(*Enricher)

// WithConcurrency は、同時に取得するページ数の上限を設定します。
func WithConcurrency(n int) EnrichOption {
	return func(e *Enricher) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithFetchOptions は、ページ取得時のオプションを設定します。
func WithFetchOptions(opts httpclient.FetchOptions) EnrichOption {
	return func(e *Enricher) { e.opts = opts }
}

func WithEnrichLogger(logger zerolog.Logger) EnrichOption {
	return func(e *Enricher) { e.logger = logger }
}

func NewEnricher(fetcher PageFetcher, opts ...EnrichOption) *Enricher {
	e := &Enricher{
		fetcher:     fetcher,
		concurrency: DefaultEnrichConcurrency,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich は、items の各リンク先からメタデータを取得して Metadata に設定した新しいスライスを返します。
// 取得や解析に失敗したアイテムは Metadata が nil のまま残ります。
func (e *Enricher) Enrich(ctx context.Context, items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)

	sem := make(chan struct{}, e.concurrency)
	var wg sync.WaitGroup
	for i := range out {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return out
		}

		wg.Add(1)
		go func(item *Item) {
			defer wg.Done()
			defer func() { <-sem }()
			item.Metadata = e.metadata(ctx, item.Link)
		}(&out[i])
	}
	wg.Wait()
	return out
}

func (e *Enricher) metadata(ctx context.Context, link string) *fields.Metadata {
	res, err := e.fetcher.Fetch(ctx, link, e.opts)
	if err != nil {
		e.logger.Debug().Err(err).Str("url", link).Msg("ページの取得に失敗しました")
		return nil
	}
	base := res.FinalURL
	if base == "" {
		base = link
	}
	md, err := fields.ExtractMetadata(res.Text(), base)
	if err != nil {
		e.logger.Debug().Err(err).Str("url", link).Msg("メタデータの抽出に失敗しました")
		return nil
	}
	return md
}
