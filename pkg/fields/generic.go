package fields

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/shouni/go-web-reader/pkg/custom"
)

var (
	titleSelectors  = []string{"title", "meta[property='og:title']", "meta[name='title']", "h1", "h2"}
	authorSelectors = []string{
		"meta[name='author']",
		"meta[property='article:author']",
		".byline",
		".author",
		"[itemprop='author']",
	}
	dateMetaSelectors = []string{
		"meta[property='article:published_time']",
		"meta[name='date']",
	}
	siteNameSelectors    = []string{"meta[property='og:site_name']", "meta[name='application-name']"}
	siteImageSelectors   = []string{"meta[property='og:image']", "meta[name='twitter:image']"}
	descriptionSelectors = []string{"meta[name='description']", "meta[property='og:description']"}
	faviconSelectors     = []string{"link[rel='icon']", "link[rel='shortcut icon']", "link[rel='apple-touch-icon']"}
)

type attrSelector struct {
	css  string
	attr string
}

var (
	leadImageSelectors = []attrSelector{
		{"meta[property='og:image']", "content"},
		{"meta[name='twitter:image']", "content"},
		{"img", "src"},
	}
	videoSelectors = []attrSelector{
		{"meta[property='og:video']", "content"},
		{"meta[property='og:video:url']", "content"},
		{"meta[name='twitter:player']", "content"},
		{"video", "src"},
		{"video source", "src"},
	}
	videoMetadataSelectors = []struct{ css, key string }{
		{"meta[property='og:video:type']", "og:video:type"},
		{"meta[property='og:video:width']", "og:video:width"},
		{"meta[property='og:video:height']", "og:video:height"},
		{"meta[property='og:video:secure_url']", "og:video:secure_url"},
	}
	nextPageSelectors = []attrSelector{
		{"link[rel='next']", "href"},
		{".next a[href]", "href"},
		{".pagination a[rel='next'][href]", "href"},
	}
)

func (e *Extractor) ruleValue(doc *goquery.Document, fe *custom.FieldExtractor) string {
	v, _ := e.FieldFirst(doc, fe)
	return v
}

func (e *Extractor) firstOf(doc *goquery.Document, selectors []attrSelector) string {
	for _, s := range selectors {
		if v := e.FirstAttr(doc, s.attr, s.css); v != "" {
			return v
		}
	}
	return ""
}

// Title は、タイトルを返します。
// ルール、<title>、og:title、meta title、h1、h2 の順に試します。
func (e *Extractor) Title(doc *goquery.Document, fe *custom.FieldExtractor) string {
	if v := e.ruleValue(doc, fe); v != "" {
		return v
	}
	return e.FirstText(doc, titleSelectors...)
}

// Author は、著者名を返します。
func (e *Extractor) Author(doc *goquery.Document, fe *custom.FieldExtractor) string {
	if v := e.ruleValue(doc, fe); v != "" {
		return v
	}
	return e.FirstText(doc, authorSelectors...)
}

// DatePublished は、公開日時を返します。
// ルール、公開日時の meta、time[datetime]、time のテキストの順に、日付として解釈できた最初の値を使います。
func (e *Extractor) DatePublished(doc *goquery.Document, fe *custom.FieldExtractor) (time.Time, bool) {
	if fe != nil {
		if v := e.ruleValue(doc, fe); v != "" {
			if t, ok := ParseDateIn(v, fe.Format, fe.Timezone); ok {
				return t, true
			}
		}
	}

	var candidates []string
	for _, css := range dateMetaSelectors {
		candidates = append(candidates, e.MetaContent(doc, css))
	}
	candidates = append(candidates,
		e.FirstAttr(doc, "datetime", "time[datetime]"),
		e.FirstText(doc, "time"),
	)
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if t, ok := ParseDate(c); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// LeadImageURL は、リード画像のURLを返します。相対URLは base で解決します。
func (e *Extractor) LeadImageURL(doc *goquery.Document, fe *custom.FieldExtractor, base *url.URL) string {
	v := e.ruleValue(doc, fe)
	if v == "" {
		v = e.firstOf(doc, leadImageSelectors)
	}
	return ResolveURL(base, v)
}

func (e *Extractor) SiteName(doc *goquery.Document) string {
	return e.FirstAttr(doc, "content", siteNameSelectors...)
}

// SiteTitle は、meta title、<title> の順にサイトのタイトルを返します。
func (e *Extractor) SiteTitle(doc *goquery.Document) string {
	if v := e.FirstAttr(doc, "content", "meta[name='title']"); v != "" {
		return v
	}
	return e.FirstText(doc, "title")
}

func (e *Extractor) SiteImage(doc *goquery.Document) string {
	return e.FirstAttr(doc, "content", siteImageSelectors...)
}

// Description は、meta description、og:description の順に説明文を返します。
func (e *Extractor) Description(doc *goquery.Document) string {
	return e.FirstAttr(doc, "content", descriptionSelectors...)
}

// Language は、html の lang 属性、og:locale、meta language の順に主言語を返します。
func (e *Extractor) Language(doc *goquery.Document) string {
	if v := NormalizeLang(e.FirstAttr(doc, "lang", "html")); v != "" {
		return v
	}
	return NormalizeLang(e.FirstAttr(doc, "content", "meta[property='og:locale']", "meta[name='language']"))
}

func (e *Extractor) ThemeColor(doc *goquery.Document) string {
	return e.FirstAttr(doc, "content", "meta[name='theme-color']")
}

// Favicon は、アイコンのURLを返します。相対URLは base で解決します。
func (e *Extractor) Favicon(doc *goquery.Document, base *url.URL) string {
	return ResolveURL(base, e.FirstAttr(doc, "href", faviconSelectors...))
}

// Dek は、ルールの dek、無ければ説明文を返します。
func (e *Extractor) Dek(doc *goquery.Document, fe *custom.FieldExtractor) string {
	if v := e.ruleValue(doc, fe); v != "" {
		return v
	}
	return e.Description(doc)
}

// Excerpt は、ルールで指定された抜粋を返します。汎用の抜粋は持ちません。
func (e *Extractor) Excerpt(doc *goquery.Document, fe *custom.FieldExtractor) string {
	return e.ruleValue(doc, fe)
}

// VideoURL は、og:video、twitter:player、<video>、<source> の順に動画のURLを返します。
func (e *Extractor) VideoURL(doc *goquery.Document) string {
	return e.firstOf(doc, videoSelectors)
}

// VideoMetadata は、og:video:* のプロパティを集めて返します。1つも無ければ nil です。
func (e *Extractor) VideoMetadata(doc *goquery.Document) map[string]any {
	var out map[string]any
	for _, s := range videoMetadataSelectors {
		v := e.MetaContent(doc, s.css)
		if v == "" {
			continue
		}
		if out == nil {
			out = make(map[string]any)
		}
		out[s.key] = v
	}
	return out
}

// NextPageURL は、次ページのURLを返します。解決は呼び出し側で行います。
func (e *Extractor) NextPageURL(doc *goquery.Document, fe *custom.FieldExtractor) string {
	if v := e.ruleValue(doc, fe); v != "" {
		return v
	}
	return e.firstOf(doc, nextPageSelectors)
}

// Extended は、ルールの extend に定義された追加フィールドを取り出します。
func (e *Extractor) Extended(doc *goquery.Document, extend map[string]*custom.FieldExtractor) map[string][]string {
	var out map[string][]string
	for name, fe := range extend {
		values, ok := e.FieldText(doc, fe)
		if !ok {
			continue
		}
		if out == nil {
			out = make(map[string][]string)
		}
		out[name] = values
	}
	return out
}

// ResolveURL は、ref を base で絶対URLへ解決します。解決できない場合は ref をそのまま返します。
func ResolveURL(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || base == nil {
		return ref
	}
	u, err := base.Parse(ref)
	if err != nil {
		return ref
	}
	return u.String()
}
