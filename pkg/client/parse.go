package client

import (
	"context"
	"errors"
	"html"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shouni/go-web-reader/pkg/custom"
	"github.com/shouni/go-web-reader/pkg/dom"
	"github.com/shouni/go-web-reader/pkg/extract"
	"github.com/shouni/go-web-reader/pkg/format"
	"github.com/shouni/go-web-reader/pkg/httpclient"
	"github.com/shouni/go-web-reader/pkg/readability"
	"github.com/shouni/go-web-reader/pkg/types"
)

const (
	opParse     = "Parse"
	opParseHTML = "ParseHTML"

	// pageSeparator は、次ページの本文を連結するときの区切りです。
	pageSeparator = "\n\n"
)

// Parse は、URLのページを取得して記事を抽出します。
// サイト別ルールの選択には、リダイレクト後の最終URLのホストを使います。
func (c *Client) Parse(ctx context.Context, rawURL string) (*types.ParseResult, error) {
	if _, err := httpclient.ValidateURL(rawURL); err != nil {
		return nil, types.NewParseError(types.ErrInvalidURL, opParse, rawURL, err)
	}

	res, err := c.fetcher.Fetch(ctx, rawURL, c.fetchOptions())
	if err != nil {
		return nil, err
	}
	final, err := url.Parse(res.FinalURL)
	if err != nil {
		return nil, types.NewParseError(types.ErrFetch, opParse, rawURL, err)
	}
	return c.parse(ctx, res.Text(), final, c.followNext)
}

// ParseHTML は、取得済みのHTMLから記事を抽出します。pageURL は相対URLの解決とルールの選択に使います。
// ネットワークへのアクセスは行いません。次ページの追跡が有効でも、NextPageURL を返すだけです。
func (c *Client) ParseHTML(ctx context.Context, src, pageURL string) (*types.ParseResult, error) {
	if strings.TrimSpace(src) == "" {
		return nil, types.NewParseError(types.ErrInvalidURL, opParseHTML, pageURL, errors.New("HTMLが空です"))
	}
	u, err := httpclient.ValidateURL(pageURL)
	if err != nil {
		return nil, types.NewParseError(types.ErrInvalidURL, opParseHTML, pageURL, err)
	}
	return c.parse(ctx, src, u, false)
}

// page は、1ページ分の抽出結果です。
type page struct {
	doc       *goquery.Document
	domain    string
	rule      *custom.CustomExtractor // ルールが無いドメインでは空のルール
	title     string
	sanitized string
}

// parse は、1ページ目の抽出と、follow が true であれば次ページの連結を行います。
func (c *Client) parse(ctx context.Context, src string, u *url.URL, follow bool) (*types.ParseResult, error) {
	p, err := c.extractPage(src, u, "")
	if err != nil {
		return nil, err
	}
	doc, rule := p.doc, p.rule

	// 1. 本文以外のフィールド
	r := &types.ParseResult{
		URL:           u.String(),
		Domain:        p.domain,
		Title:         p.title,
		Author:        c.fields.Author(doc, rule.Author),
		LeadImageURL:  c.fields.LeadImageURL(doc, rule.LeadImageURL, u),
		Dek:           c.fields.Dek(doc, rule.Dek),
		SiteName:      c.fields.SiteName(doc),
		SiteTitle:     c.fields.SiteTitle(doc),
		SiteImage:     c.fields.SiteImage(doc),
		Language:      c.fields.Language(doc),
		ThemeColor:    c.fields.ThemeColor(doc),
		Favicon:       c.fields.Favicon(doc, u),
		VideoURL:      c.fields.VideoURL(doc),
		VideoMetadata: c.fields.VideoMetadata(doc),
		NextPageURL:   c.fields.NextPageURL(doc, rule.NextPageURL),
	}
	if t, ok := c.fields.DatePublished(doc, rule.DatePublished); ok {
		r.DatePublished = &t
	}
	r.Extended = c.fields.Extended(doc, rule.Extend)

	// 2. 語数と文字の方向は、取得したページ全体のテキストから求める
	plain := format.HTMLToText(src)
	r.Direction = c.fields.Direction(doc, plain)
	r.WordCount = format.WordCount(plain)

	// 3. 本文の変換
	r.Content = format.Convert(p.sanitized, c.contentType)

	// 4. 次ページの連結。連結した場合の語数は連結後の本文から求める
	if follow && r.NextPageURL != "" {
		if next, ok := c.fetchNextPage(ctx, u, r.NextPageURL, p.title); ok {
			combined := p.sanitized + pageSeparator + next.sanitized
			switch c.contentType {
			case format.HTML:
				r.Content = combined
			default:
				r.Content += pageSeparator + format.Convert(next.sanitized, c.contentType)
			}
			r.WordCount = format.WordCount(format.HTMLToText(combined))
			r.NextPageURL = c.fields.NextPageURL(next.doc, next.rule.NextPageURL)
			r.TotalPages = 2
			r.RenderedPages = 2
		}
	}

	// 5. 説明文と抜粋
	customExcerpt := c.fields.Excerpt(doc, rule.Excerpt)
	if customExcerpt != "" && r.Dek == "" {
		r.Description = customExcerpt
	} else {
		r.Description = c.fields.Description(doc)
	}
	r.Excerpt = customExcerpt
	if r.Excerpt == "" {
		r.Excerpt = format.Excerpt(plain)
	}

	return r, nil
}

// extractPage は、文書をパースし、タイトルとサニタイズ済みの本文を取り出します。
// title が空でなければ、そのタイトルを本文の抽出に使います。
func (c *Client) extractPage(src string, u *url.URL, title string) (*page, error) {
	doc, err := dom.Parse(src)
	if err != nil {
		return nil, types.NewParseError(types.ErrExtract, opParseHTML, u.String(), err)
	}

	p := &page{doc: doc, domain: strings.ToLower(u.Hostname())}
	if rule, ok := c.registry.Get(p.domain); ok {
		p.rule = rule
	} else {
		p.rule = &custom.CustomExtractor{}
	}

	p.title = title
	if p.title == "" {
		p.title = c.fields.Title(doc, p.rule.Title)
	}

	content := c.extractContent(doc, p.domain, p.rule, p.title)
	if len([]rune(format.HTMLToText(content))) < jsonLDThreshold {
		if body, ok := c.fields.ArticleBodyFromJSONLD(doc); ok {
			c.logger.Debug().Str("domain", p.domain).Msg("JSON-LD の articleBody を本文として使います")
			content = paragraphs(body)
		}
	}
	p.sanitized = format.Sanitize(content)
	return p, nil
}

// extractContent は、サイト別ルール、汎用のスコアリング、body 全体の順に本文を取り出します。
func (c *Client) extractContent(doc *goquery.Document, domain string, rule *custom.CustomExtractor, title string) string {
	if rule.Content != nil {
		if content, ok := c.extractor.Content(doc, rule.Content); ok {
			c.logger.Debug().Str("domain", domain).Str("extractor", "custom").Msg("本文を抽出しました")
			if extract.HasDomainTransforms(domain) {
				c.logger.Debug().Str("domain", domain).Msg("ドメイン固有の置き換えを適用します")
				content = c.extractor.ApplyDomainTransforms(domain, content)
			}
			return content
		}
	}
	if content, ok := readability.Extract(doc, title); ok {
		c.logger.Debug().Str("domain", domain).Str("extractor", "generic").Msg("本文を抽出しました")
		return content
	}
	c.logger.Debug().Str("domain", domain).Str("extractor", "body").Msg("本文を抽出しました")
	return dom.InnerHTML(dom.Body(doc))
}

// fetchNextPage は、次ページを取得して同じ手順で本文を取り出します。
// 取得や抽出に失敗した場合は false を返し、1ページ目の結果だけを使います。
func (c *Client) fetchNextPage(ctx context.Context, base *url.URL, ref, title string) (*page, bool) {
	next, err := base.Parse(ref)
	if err != nil {
		c.logger.Debug().Err(err).Str("next_page_url", ref).Msg("次ページのURLを解決できません")
		return nil, false
	}

	c.logger.Debug().Str("next_page_url", next.String()).Msg("次ページを取得します")
	res, err := c.fetcher.Fetch(ctx, next.String(), c.fetchOptions())
	if err != nil {
		c.logger.Debug().Err(err).Str("next_page_url", next.String()).Msg("次ページの取得に失敗しました")
		return nil, false
	}
	final, err := url.Parse(res.FinalURL)
	if err != nil {
		return nil, false
	}
	p, err := c.extractPage(res.Text(), final, title)
	if err != nil {
		return nil, false
	}
	return p, true
}

// paragraphs は、空行で区切られたテキストを段落のHTMLに変換します。
func paragraphs(text string) string {
	var sb strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		sb.WriteString("<p>")
		sb.WriteString(html.EscapeString(para))
		sb.WriteString("</p>")
	}
	return sb.String()
}
