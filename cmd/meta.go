package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/shouni/go-web-reader/pkg/fields"
	"github.com/shouni/go-web-reader/pkg/httpclient"
)

var (
	metaHTMLPath string
	metaURL      string
)

// runMeta は、HTMLからページのメタデータだけを取り出して書き出します。
// htmlPath が空の場合は pageURL を取得します。
func runMeta(ctx context.Context, f pageFetcher, htmlPath, pageURL string, stdin io.Reader, w io.Writer) error {
	if pageURL == "" {
		return errURLRequired
	}

	var src, base string
	if htmlPath != "" {
		s, err := readSource(htmlPath, stdin)
		if err != nil {
			return err
		}
		src, base = s, pageURL
	} else {
		u, err := ensureScheme(pageURL)
		if err != nil {
			return fmt.Errorf("URLスキームの処理エラー: %w", err)
		}
		res, err := f.Fetch(ctx, u)
		if err != nil {
			return fmt.Errorf("ページの取得に失敗しました (URL: %s): %w", u, err)
		}
		src, base = res.Text(), res.FinalURL
	}

	md, err := fields.ExtractMetadata(src, base)
	if err != nil {
		return fmt.Errorf("メタデータの抽出に失敗しました: %w", err)
	}
	return writeJSON(w, md, false)
}

// pageFetcher は、設定済みの FetchOptions でページを取得します。
type pageFetcher interface {
	Fetch(ctx context.Context, url string) (*httpclient.FetchResult, error)
}

func (f optionFetcher) Fetch(ctx context.Context, url string) (*httpclient.FetchResult, error) {
	return f.client.Fetch(ctx, url, f.opts)
}

var metaCmd = &cobra.Command{
	Use:   "meta",
	Short: "本文を抽出せずに、ページのメタデータ (OGPなど) だけを取り出します",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := app.config
		f := optionFetcher{
			client: httpclient.New(cfg.Timeout, httpclient.WithUserAgent(cfg.UserAgent), httpclient.WithLogger(app.logger)),
			opts:   httpclient.FetchOptions{Headers: cfg.Headers, AllowPrivateNetworks: cfg.AllowPrivateNetworks},
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), overallTimeout())
		defer cancel()
		return runMeta(ctx, f, metaHTMLPath, metaURL, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	metaCmd.Flags().StringVar(&metaHTMLPath, "html", "", "取得の代わりに読み込むHTMLファイル (\"-\" で標準入力)")
	metaCmd.Flags().StringVarP(&metaURL, "url", "u", "", "ページのURL (相対URLの解決に使います)")
}
