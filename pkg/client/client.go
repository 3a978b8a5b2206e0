package client

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/shouni/go-web-reader/pkg/custom"
	"github.com/shouni/go-web-reader/pkg/dom"
	"github.com/shouni/go-web-reader/pkg/extract"
	"github.com/shouni/go-web-reader/pkg/fields"
	"github.com/shouni/go-web-reader/pkg/format"
	"github.com/shouni/go-web-reader/pkg/httpclient"
)

// ----------------------------------------------------------------------
// 定数とインターフェース
// ----------------------------------------------------------------------

const (
	// DefaultHTTPTimeout は、デフォルトのHTTPタイムアウトです。
	DefaultHTTPTimeout = httpclient.DefaultHTTPTimeout
	// DefaultUserAgent は、デフォルトの User-Agent です。
	DefaultUserAgent = httpclient.UserAgent

	// jsonLDThreshold は、本文のテキストがこの文字数未満のときに JSON-LD の articleBody を試す閾値です。
	jsonLDThreshold = 500
)

// Doer は、標準の *http.Client.Do() と互換性のあるHTTPクライアントのインターフェースを定義します。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client は、ページの取得から記事の抽出までを行うクライアントです。
// 生成後の Client は変更されないため、複数のゴルーチンから同時に使えます。
type Client struct {
	timeout              time.Duration
	userAgent            string
	allowPrivateNetworks bool
	contentType          format.ContentType
	headers              map[string]string
	followNext           bool

	doer     Doer
	resolver httpclient.Resolver
	registry *custom.Registry
	cache    *dom.SelectorCache
	logger   zerolog.Logger

	fetcher   *httpclient.Client
	extractor *extract.Extractor
	fields    *fields.Extractor
}

// ----------------------------------------------------------------------
// 設定とコンストラクタ
// ----------------------------------------------------------------------

// Option は Client の設定を行うための関数型です。
type Option func(*Client)

// WithTimeout は、1回の取得のタイムアウトを設定します。0以下の値は無視します。
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithAllowPrivateNetworks は、プライベートアドレスへの取得を許可するかを設定します。
// テストやイントラネット向けの用途以外では有効にしないでください。
func WithAllowPrivateNetworks(allow bool) Option {
	return func(c *Client) { c.allowPrivateNetworks = allow }
}

// WithContentType は、本文の出力形式を設定します。
func WithContentType(ct format.ContentType) Option {
	return func(c *Client) { c.contentType = ct }
}

// WithHeader は、すべてのリクエストに付けるヘッダーを追加します。
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers[key] = value }
}

func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

// WithRegistry は、サイト別の抽出ルールを設定します。nil の場合は組み込みのルールを使います。
func WithRegistry(r *custom.Registry) Option {
	return func(c *Client) { c.registry = r }
}

// WithSelectorCache は、コンパイル済みセレクタのキャッシュを設定します。
// 複数の Client で同じキャッシュを共有できます。
func WithSelectorCache(cache *dom.SelectorCache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithFollowNext は、次ページを1つだけ追跡して本文を連結するかを設定します。
func WithFollowNext(follow bool) Option {
	return func(c *Client) { c.followNext = follow }
}

// WithHTTPClient はカスタムのDoerを設定します。
func WithHTTPClient(doer Doer) Option {
	return func(c *Client) { c.doer = doer }
}

// WithResolver は、SSRF検査の名前解決に使う Resolver を設定します。
func WithResolver(r httpclient.Resolver) Option {
	return func(c *Client) { c.resolver = r }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New は新しいClientを初期化します。
func New(options ...Option) *Client {
	c := &Client{
		timeout:     DefaultHTTPTimeout,
		userAgent:   DefaultUserAgent,
		contentType: format.HTML,
		headers:     make(map[string]string),
		logger:      zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}

	// 1. 抽出ルールとセレクタキャッシュ
	if c.registry == nil {
		reg, err := custom.Builtin()
		if err != nil {
			c.logger.Error().Err(err).Msg("組み込みの抽出ルールを使えません。汎用の抽出のみを行います")
			reg = custom.NewRegistry()
		}
		c.registry = reg
	}
	if c.cache == nil {
		c.cache = dom.NewSelectorCache()
	}
	if invalid := c.cache.Precompile(c.registry.Selectors()...); invalid > 0 {
		c.logger.Warn().Int("invalid_selectors", invalid).Msg("抽出ルールに解釈できないセレクタがあります。該当するセレクタは一致しないものとして扱います")
	}
	c.extractor = extract.NewExtractor(c.cache)
	c.fields = fields.New(c.cache)

	// 2. 取得クライアント
	fetchOpts := []httpclient.ClientOption{
		httpclient.WithUserAgent(c.userAgent),
		httpclient.WithLogger(c.logger),
	}
	if c.doer != nil {
		fetchOpts = append(fetchOpts, httpclient.WithHTTPClient(c.doer))
	}
	if c.resolver != nil {
		fetchOpts = append(fetchOpts, httpclient.WithResolver(c.resolver))
	}
	c.fetcher = httpclient.New(c.timeout, fetchOpts...)

	return c
}

// Registry は、使用中の抽出ルールを返します。
func (c *Client) Registry() *custom.Registry {
	return c.registry
}

// ContentType は、本文の出力形式を返します。
func (c *Client) ContentType() format.ContentType {
	return c.contentType
}

func (c *Client) fetchOptions() httpclient.FetchOptions {
	return httpclient.FetchOptions{
		Headers:              c.headers,
		AllowPrivateNetworks: c.allowPrivateNetworks,
	}
}
