package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/mmcdole/gofeed"
)

// Parserが依存すべきインターフェース
// *httpclient.Client はこのインターフェースを満たします。
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Parser 構造体
type Parser struct {
	client Fetcher // インターフェースに依存
}

// NewParser は新しい Parser インスタンスを初期化し、依存関係を注入します。
func NewParser(client Fetcher) *Parser {
	return &Parser{client: client}
}

// FetchAndParse は指定されたURLからフィードを取得し、パースします。
// 取得には注入された Fetcher を使うため、SSRF対策やサイズ制限は Fetcher 側の設定に従います。
func (p *Parser) FetchAndParse(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	body, err := p.client.FetchBytes(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("フィードの取得失敗 (URL: %s): %w", feedURL, err)
	}

	feed, err := Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("RSSフィードのパース失敗 (URL: %s): %w", feedURL, err)
	}
	return feed, nil
}

// Parse は、RSS・Atom・JSON Feed を読み込みます。
func Parse(r io.Reader) (*gofeed.Feed, error) {
	return gofeed.NewParser().Parse(r)
}
