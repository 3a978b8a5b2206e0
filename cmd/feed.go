package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/shouni/go-web-reader/internal/pipeline"
	"github.com/shouni/go-web-reader/pkg/feed"
	"github.com/shouni/go-web-reader/pkg/httpclient"
	"github.com/shouni/go-web-reader/pkg/scraper"
)

// フィード用のフラグ変数
var (
	feedURL     string
	feedEnrich  bool
	feedParse   bool
	feedLimit   int
	feedCompact bool
)

// optionFetcher は、FetchOptions を固定して httpclient.Client を feed.Fetcher に適合させます。
type optionFetcher struct {
	client *httpclient.Client
	opts   httpclient.FetchOptions
}

func (f optionFetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	res, err := f.client.Fetch(ctx, url, f.opts)
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

// feedReport は feed コマンドの出力です。
type feedReport struct {
	FeedURL     string        `json:"feed_url"`
	Title       string        `json:"title"`
	Link        string        `json:"link,omitempty"`
	Description string        `json:"description,omitempty"`
	TotalItems  int           `json:"total_items"`
	Items       []feed.Item   `json:"items"`
	Articles    *scrapeReport `json:"articles,omitempty"`
}

// feedPipeline は、フィード処理の依存関係をまとめたものです。
type feedPipeline struct {
	parser   *feed.Parser
	enricher *feed.Enricher // nil なら付与しない
	scraper  scraper.Scraper
	limit    int
}

// run は、フィードを取得してアイテムを一覧にし、必要に応じてメタデータの付与と記事の抽出を行います。
func (p feedPipeline) run(ctx context.Context, url string) (*feedReport, error) {
	logger := zerolog.Ctx(ctx)

	// 1. フィードの取得とパース
	parsed, err := p.parser.FetchAndParse(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("フィードの取得およびパースエラー (URL: %s): %w", url, err)
	}
	adapter := feed.NewFeedAdapter(parsed)
	items := adapter.Items()
	if p.limit > 0 && len(items) > p.limit {
		items = items[:p.limit]
	}
	logger.Debug().Str("feed", parsed.Title).Int("items", len(items)).Msg("フィードを解析しました")

	report := newFeedReport(url, parsed, items)

	// 2. 各記事ページのメタデータ付与
	if p.enricher != nil {
		report.Items = p.enricher.Enrich(ctx, items)
	}

	// 3. 記事本文の抽出
	if p.scraper != nil && len(items) > 0 {
		links := make([]string, 0, len(items))
		for _, it := range items {
			links = append(links, it.Link)
		}
		articles := newScrapeReport(p.scraper.ScrapeInParallel(ctx, links))
		report.Articles = &articles
	}
	return report, nil
}

func newFeedReport(url string, f *gofeed.Feed, items []feed.Item) *feedReport {
	return &feedReport{
		FeedURL:     url,
		Title:       f.Title,
		Link:        f.Link,
		Description: f.Description,
		TotalItems:  len(f.Items),
		Items:       items,
	}
}

func runFeed(ctx context.Context, p feedPipeline, url string, w io.Writer, compact bool) error {
	report, err := p.run(ctx, url)
	if err != nil {
		return err
	}
	return writeJSON(w, report, compact)
}

var feedCmd = &cobra.Command{
	Use:   "feed [URL]",
	Short: "RSS/Atomフィードを取得・解析し、記事を一覧表示します",
	Long: `指定されたURLからRSS・Atom・JSON Feedを取得し、フィードと記事の一覧をJSONで出力します。
--enrich で各記事ページのメタデータを、--parse で各記事の本文を合わせて取得します。`,
	Args: cobra.MaximumNArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		raw := feedURL
		if len(args) == 1 {
			raw = args[0]
		}
		if raw == "" {
			return errNoURL
		}
		url, err := ensureScheme(raw)
		if err != nil {
			return fmt.Errorf("URLスキームの処理エラー: %w", err)
		}

		// 1. 依存性の初期化
		cfg := app.config
		hc := httpclient.New(cfg.Timeout,
			httpclient.WithUserAgent(cfg.UserAgent),
			httpclient.WithLogger(app.logger),
		)
		opts := httpclient.FetchOptions{Headers: cfg.Headers, AllowPrivateNetworks: cfg.AllowPrivateNetworks}

		p := feedPipeline{
			parser: feed.NewParser(optionFetcher{client: hc, opts: opts}),
			limit:  feedLimit,
		}
		if feedEnrich {
			p.enricher = feed.NewEnricher(hc,
				feed.WithFetchOptions(opts),
				feed.WithEnrichLogger(app.logger),
			)
		}
		if feedParse {
			parser := pipeline.RetryingParser{Parser: newClient(), Config: cfg.Retry}
			p.scraper = scraper.NewParallelScraper(parser, cfg.Concurrency, scraper.WithLogger(app.logger))
		}

		timeout := overallTimeout()
		if feedEnrich || feedParse {
			timeout *= 5
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		ctx = app.logger.WithContext(ctx)

		start := time.Now()
		defer func() {
			app.logger.Debug().Dur("elapsed", time.Since(start)).Str("url", url).Msg("フィード処理完了")
		}()
		return runFeed(ctx, p, url, cmd.OutOrStdout(), feedCompact)
	},
}

func init() {
	feedCmd.Flags().StringVarP(&feedURL, "url", "u", "", "解析対象のフィード (RSS/Atom) URL")
	feedCmd.Flags().BoolVar(&feedEnrich, "enrich", false, "各記事ページを取得し、OGPなどのメタデータを付与します")
	feedCmd.Flags().BoolVar(&feedParse, "parse", false, "各記事の本文を並列で抽出します")
	feedCmd.Flags().IntVar(&feedLimit, "limit", 0, "処理する記事数の上限 (0で無制限)")
	feedCmd.Flags().BoolVar(&feedCompact, "compact", false, "JSONをインデントせずに出力します")
}
