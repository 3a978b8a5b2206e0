package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/shouni/go-web-reader/internal/pipeline"
	"github.com/shouni/go-web-reader/pkg/scraper"
	"github.com/shouni/go-web-reader/pkg/types"
)

// コマンドラインフラグ変数を定義
var (
	inputURLs   string        // --urls フラグで受け取るカンマ区切りのURLリスト
	concurrency int           // --concurrency フラグで受け取る並列実行数
	rateLimit   time.Duration // --rate-limit リクエスト開始の最小間隔
)

// scrapeEntry は、1件のURLの結果を出力用に平坦化したものです。
type scrapeEntry struct {
	URL    string             `json:"url"`
	OK     bool               `json:"ok"`
	Result *types.ParseResult `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// scrapeReport は scraper コマンドの出力です。
type scrapeReport struct {
	Results   []scrapeEntry `json:"results"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
}

func newScrapeReport(results []types.URLResult) scrapeReport {
	report := scrapeReport{Results: make([]scrapeEntry, 0, len(results)), Total: len(results)}
	for _, res := range results {
		entry := scrapeEntry{URL: res.URL, OK: res.OK(), Result: res.Result}
		if res.Error != nil {
			entry.Error = res.Error.Error()
			entry.Result = nil
			report.Failed++
		} else {
			report.Succeeded++
		}
		report.Results = append(report.Results, entry)
	}
	return report
}

// runScrapePipeline は、並列スクレイピングを実行するメインロジックです。
func runScrapePipeline(ctx context.Context, s scraper.Scraper, urls []string, w io.Writer) (scrapeReport, error) {
	logger := zerolog.Ctx(ctx)
	logger.Info().Int("urls", len(urls)).Msg("並列スクレイピング開始")

	results := s.ScrapeInParallel(ctx, urls)
	report := newScrapeReport(results)

	logger.Info().Int("succeeded", report.Succeeded).Int("failed", report.Failed).Msg("並列スクレイピング完了")
	return report, writeJSON(w, report, false)
}

var scraperCmd = &cobra.Command{
	Use:   "scraper",
	Short: "複数のURLを並列で処理し、記事を抽出します",
	Long:  `--urls フラグでカンマ区切りのURLリストを受け取るか、標準入力からURLを一行ずつ読み込み、指定された最大同時実行数で並列抽出を実行します。`,
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 処理対象URLのリストを決定
		var raw []string
		if inputURLs != "" {
			raw = strings.Split(inputURLs, ",")
		} else {
			app.logger.Info().Msg("URLが指定されていないため、標準入力からURLを読み込みます (Ctrl+DまたはEOFで終了)...")
			lines, err := readLines(cmd.InOrStdin())
			if err != nil {
				return err
			}
			raw = lines
		}
		urls, err := ensureSchemes(raw)
		if err != nil {
			return fmt.Errorf("URLスキームの処理エラー: %w", err)
		}
		if len(urls) == 0 {
			return fmt.Errorf("処理対象のURLが一つも指定されていません")
		}

		// 2. 依存性の初期化 (Client -> RetryingParser -> Scraper)
		n := concurrency
		if !cmd.Flags().Changed("concurrency") && app.config.Concurrency > 0 {
			n = app.config.Concurrency
		}
		parser := pipeline.RetryingParser{Parser: newClient(), Config: app.config.Retry}
		s := scraper.NewParallelScraper(parser, n, scraper.WithRateLimit(rateLimit), scraper.WithLogger(app.logger))

		// 3. 全体のタイムアウトはURL数に比例させる
		timeout := overallTimeout() * time.Duration(1+len(urls)/max(n, 1))
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		ctx = app.logger.WithContext(ctx)

		report, err := runScrapePipeline(ctx, s, urls, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if report.Succeeded == 0 {
			return fmt.Errorf("すべてのURLの抽出に失敗しました (%d件)", report.Failed)
		}
		return nil
	},
}

func init() {
	scraperCmd.Flags().StringVarP(&inputURLs, "urls", "u", "",
		"抽出対象のカンマ区切りURLリスト (例: url1,url2,url3)")
	scraperCmd.Flags().IntVarP(&concurrency, "concurrency", "c",
		scraper.DefaultMaxConcurrency,
		fmt.Sprintf("最大並列実行数 (デフォルト: %d)", scraper.DefaultMaxConcurrency))
	scraperCmd.Flags().DurationVar(&rateLimit, "rate-limit", scraper.DefaultScrapeRateLimit,
		"リクエストを開始する最小間隔 (0で無制限)")
}
