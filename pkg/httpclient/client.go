package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/shouni/go-web-reader/pkg/types"
)

const (
	// HTTPクライアント関連の定数
	DefaultHTTPTimeout = 30 * time.Second
	MaxBodySize        = int64(10 * 1024 * 1024) // 10MB: レスポンスボディの最大読み込みサイズ
	MaxRedirects       = 10

	UserAgent = "go-web-reader/1.0"

	opFetch = "Fetch"
)

// Doer は、標準の *http.Client.Do() と互換性のあるHTTPクライアントのインターフェースを定義します。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError は、200以外のステータスコードを受け取ったことを示すエラー型です。
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTPステータスコードエラー: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// IsRetryableStatus は、エラーが一時的なサーバーエラー (5xx, 429) によるものかを判定します。
func IsRetryableStatus(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode >= 500 || se.StatusCode == http.StatusTooManyRequests
}

// FetchOptions は、1回の取得ごとの設定です。
type FetchOptions struct {
	Headers              map[string]string
	AllowPrivateNetworks bool
	ParseNon200          bool
}

// FetchResult は、取得したリソースです。FinalURL はリダイレクト後に実際に使われたURLです。
type FetchResult struct {
	Status      int
	URL         string
	FinalURL    string
	ContentType string
	Body        []byte
}

// Text は、ボディを文字列にデコードして返します。
func (r *FetchResult) Text() string {
	return DecodeBody(r.Body, r.ContentType)
}

// Client は、SSRF対策とサイズ制限を備えたリソース取得クライアントです。
// この層ではリトライを行いません。
type Client struct {
	httpClient Doer
	resolver   Resolver
	timeout    time.Duration
	userAgent  string
	logger     zerolog.Logger
}

// ClientOption は Client の設定を行うための関数型です。
type ClientOption func(*Client)

// WithHTTPClient はカスタムのDoerを設定します。
// *http.Client が渡された場合は、リダイレクトごとのアドレス検査を組み込んだ複製を使います。
func WithHTTPClient(doer Doer) ClientOption {
	return func(c *Client) {
		if hc, ok := doer.(*http.Client); ok {
			doer = guardRedirects(hc)
		}
		c.httpClient = doer
	}
}

// WithResolver は名前解決に使うResolverを設定します。
func WithResolver(r Resolver) ClientOption {
	return func(c *Client) { c.resolver = r }
}

func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// New は、新しいClientを生成します。
func New(timeout time.Duration, options ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}

	c := &Client{
		httpClient: guardRedirects(&http.Client{}),
		resolver:   net.DefaultResolver,
		timeout:    timeout,
		userAgent:  UserAgent,
		logger:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// guardKey は、リダイレクト検査に必要な設定をリクエストのコンテキストに載せるためのキーです。
type guardKey struct{}

type redirectGuard struct {
	allowPrivate bool
	resolver     Resolver
}

// guardRedirects は、リダイレクトの各ホップでスキームとアドレスを検査する http.Client の複製を返します。
func guardRedirects(hc *http.Client) *http.Client {
	clone := *hc
	clone.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= MaxRedirects {
			return fmt.Errorf("リダイレクト回数が上限 (%d回) に達しました", MaxRedirects)
		}
		if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
			return fmt.Errorf("リダイレクト先のスキームが不正です: %s", req.URL.Scheme)
		}
		g, ok := req.Context().Value(guardKey{}).(*redirectGuard)
		if !ok || g.allowPrivate {
			return nil
		}
		return checkHost(req.Context(), g.resolver, req.URL.Hostname())
	}
	return &clone
}

// ValidateURL は、URLが空でなく、http(s) スキームとホストを持つことを確認します。
func ValidateURL(rawURL string) (*url.URL, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, errors.New("URLが空です")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("URLのパースエラー: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("無効なURLスキームです。httpまたはhttpsを指定してください: %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, errors.New("URLにホストが含まれていません")
	}
	return u, nil
}

// Fetch は、URLを検証・検査したうえでリソースを取得します。
func (c *Client) Fetch(ctx context.Context, rawURL string, opts FetchOptions) (*FetchResult, error) {
	// 1. URLの検証 (I/Oの前に行う)
	u, err := ValidateURL(rawURL)
	if err != nil {
		return nil, types.NewParseError(types.ErrInvalidURL, opFetch, rawURL, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// 2. 接続前のアドレス検査
	if !opts.AllowPrivateNetworks {
		if err := checkHost(ctx, c.resolver, u.Hostname()); err != nil {
			return nil, c.classify(ctx, rawURL, err)
		}
	}

	// 3. リクエストの送信
	ctx = context.WithValue(ctx, guardKey{}, &redirectGuard{
		allowPrivate: opts.AllowPrivateNetworks,
		resolver:     c.resolver,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, types.NewParseError(types.ErrInvalidURL, opFetch, rawURL, fmt.Errorf("GETリクエスト作成に失敗しました: %w", err))
	}
	c.addCommonHeaders(req, opts.Headers)

	c.logger.Debug().Str("url", rawURL).Msg("取得を開始します")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.classify(ctx, rawURL, err)
	}
	defer resp.Body.Close()

	// 4. リダイレクト後の最終URLを再検査
	finalURL := u
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL
	}
	if !opts.AllowPrivateNetworks {
		if err := checkHost(ctx, c.resolver, finalURL.Hostname()); err != nil {
			return nil, c.classify(ctx, rawURL, err)
		}
	}

	// 5. サイズ上限とステータスの検査
	if resp.ContentLength > MaxBodySize {
		return nil, types.NewParseError(types.ErrFetch, opFetch, rawURL,
			fmt.Errorf("レスポンスボディが最大サイズ (%dバイト) を超えました: Content-Length %d", MaxBodySize, resp.ContentLength))
	}
	if resp.StatusCode != http.StatusOK && !opts.ParseNon200 {
		return nil, types.NewParseError(types.ErrFetch, opFetch, rawURL, &StatusError{StatusCode: resp.StatusCode})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return nil, c.classify(ctx, rawURL, fmt.Errorf("レスポンスボディの読み込みに失敗しました: %w", err))
	}
	if int64(len(body)) > MaxBodySize {
		return nil, types.NewParseError(types.ErrFetch, opFetch, rawURL,
			fmt.Errorf("レスポンスボディが最大サイズ (%dバイト) を超えました", MaxBodySize))
	}

	c.logger.Debug().
		Str("url", rawURL).
		Str("final_url", finalURL.String()).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Msg("取得が完了しました")

	return &FetchResult{
		Status:      resp.StatusCode,
		URL:         rawURL,
		FinalURL:    finalURL.String(),
		ContentType: strings.ToLower(resp.Header.Get("Content-Type")),
		Body:        body,
	}, nil
}

// FetchBytes は、既定の設定でURLを取得し、ボディのバイト列を返します。
func (c *Client) FetchBytes(ctx context.Context, rawURL string) ([]byte, error) {
	res, err := c.Fetch(ctx, rawURL, FetchOptions{})
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

// addCommonHeaders は共通のHTTPヘッダーと呼び出し元指定のヘッダーを設定します。
func (c *Client) addCommonHeaders(req *http.Request, headers map[string]string) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
}

// classify は、取得中のエラーを ParseError の分類に対応付けます。
func (c *Client) classify(ctx context.Context, rawURL string, err error) error {
	var blocked *BlockedError
	if errors.As(err, &blocked) {
		return types.NewParseError(types.ErrSSRF, opFetch, rawURL, blocked)
	}

	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return types.NewParseError(types.ErrContext, opFetch, rawURL, err)
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return types.NewParseError(types.ErrTimeout, opFetch, rawURL, err)
	}

	return types.NewParseError(types.ErrFetch, opFetch, rawURL, err)
}
