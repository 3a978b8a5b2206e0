package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/shouni/go-web-reader/internal/pipeline"
	"github.com/shouni/go-web-reader/pkg/client"
	"github.com/shouni/go-web-reader/pkg/format"
	"github.com/shouni/go-web-reader/pkg/retry"
	"github.com/shouni/go-web-reader/pkg/types"
)

// extractOptions は extract コマンドのフラグです。
type extractOptions struct {
	URLs           []string
	HTMLPath       string
	PageURL        string
	Format         string
	OutputPath     string
	Timing         bool
	FollowNext     bool
	MarkdownReport bool
	Compact        bool
}

var extractFlags extractOptions

var (
	errNoURL          = errors.New("at least one URL is required")
	errURLRequired    = errors.New("--url is required when --html is given")
	errSomeURLsFailed = errors.New("一部のURLの抽出に失敗しました")
)

// runExtract は、extract コマンドのメインロジックです。
// URLが1件なら結果をそのまま、複数なら1行に1件ずつJSONで書き出します。
func runExtract(ctx context.Context, c *client.Client, rc retry.Config, opts extractOptions, stdin io.Reader, stdout, stderr io.Writer) error {
	logger := zerolog.Ctx(ctx)

	// 1. 入力の検証
	if opts.HTMLPath != "" && opts.PageURL == "" {
		return errURLRequired
	}
	targets := opts.URLs
	if opts.HTMLPath == "" {
		if opts.PageURL != "" {
			targets = append([]string{opts.PageURL}, targets...)
		}
		var err error
		if targets, err = ensureSchemes(targets); err != nil {
			return fmt.Errorf("URLスキームの処理エラー: %w", err)
		}
		if len(targets) == 0 {
			return errNoURL
		}
	} else {
		targets = []string{opts.PageURL}
	}

	out, closeOut, err := openOutput(opts.OutputPath, stdout)
	if err != nil {
		return err
	}
	defer closeOut()

	// 2. 抽出の実行と出力
	failed := 0
	for _, target := range targets {
		start := time.Now()

		var result *types.ParseResult
		if opts.HTMLPath != "" {
			src, rerr := readSource(opts.HTMLPath, stdin)
			if rerr != nil {
				return rerr
			}
			result, err = c.ParseHTML(ctx, src, target)
		} else {
			result, err = pipeline.ParseWithRetry(ctx, c, target, rc)
		}

		if opts.Timing {
			fmt.Fprintf(stderr, "elapsed: %d ms (%s)\n", time.Since(start).Milliseconds(), target)
		}
		if err != nil {
			if len(targets) == 1 {
				return fmt.Errorf("コンテンツ抽出パイプラインの実行エラー (URL: %s): %w", target, err)
			}
			failed++
			logger.Error().Err(err).Str("url", target).Msg("抽出に失敗しました")
			continue
		}

		if err := writeResult(out, result, opts, len(targets) > 1); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w (%d/%d件)", errSomeURLsFailed, failed, len(targets))
	}
	return nil
}

func writeResult(w io.Writer, r *types.ParseResult, opts extractOptions, multi bool) error {
	if opts.MarkdownReport {
		_, err := fmt.Fprintln(w, r.FormatMarkdown())
		return err
	}
	return writeJSON(w, r, opts.Compact || multi)
}

var extractCmd = &cobra.Command{
	Use:   "extract [URL...]",
	Short: "指定されたURLまたはHTMLファイルから記事を抽出します",
	Long: `指定されたURLから記事を取得し、本文とメタデータをJSONで出力します。
--html でローカルのHTMLファイルを渡す場合は、相対URLの解決とサイト別ルールの選択に使う --url も指定してください。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := extractFlags
		opts.URLs = args

		var extra []client.Option
		if cmd.Flags().Changed("format") {
			extra = append(extra, client.WithContentType(format.ParseContentType(opts.Format)))
		}
		if cmd.Flags().Changed("follow-next") {
			extra = append(extra, client.WithFollowNext(opts.FollowNext))
		}
		c := newClient(extra...)

		ctx, cancel := context.WithTimeout(cmd.Context(), overallTimeout())
		defer cancel()
		ctx = app.logger.WithContext(ctx)

		return runExtract(ctx, c, app.config.Retry, opts, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	f := extractCmd.Flags()
	f.StringVar(&extractFlags.HTMLPath, "html", "", "取得の代わりに読み込むHTMLファイル (\"-\" で標準入力)")
	f.StringVarP(&extractFlags.PageURL, "url", "u", "", "抽出対象のURL (--html の場合はページのURL)")
	f.StringVarP(&extractFlags.Format, "format", "f", "html", "本文の出力形式 (html|markdown|text)")
	f.StringVarP(&extractFlags.OutputPath, "output", "o", "", "結果を書き出すファイル (省略時は標準出力)")
	f.BoolVar(&extractFlags.Timing, "timing", false, "抽出にかかった時間を標準エラー出力に表示します")
	f.BoolVar(&extractFlags.FollowNext, "follow-next", false, "次ページを1つだけ追跡して本文を連結します (--html の入力では追跡しません)")
	f.BoolVar(&extractFlags.MarkdownReport, "markdown-report", false, "JSONの代わりにメタデータ付きのMarkdownを出力します")
	f.BoolVar(&extractFlags.Compact, "compact", false, "JSONをインデントせずに出力します")
}
