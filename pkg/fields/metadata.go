package fields

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shouni/go-web-reader/pkg/dom"
	"github.com/shouni/go-web-reader/pkg/types"
)

// Metadata は、本文の抽出を行わずに head から読み取ったページ情報です。
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	SiteName    string `json:"site_name"`
	OGType      string `json:"og_type"`
	URL         string `json:"url"`
	ImageURL    string `json:"image_url"`
	ImageAlt    string `json:"image_alt"`
	IconURL     string `json:"icon_url"`
	ThemeColor  string `json:"theme_color"`
	Language    string `json:"language"`
}

// ExtractMetadata は、共有の Extractor でメタデータを取り出します。
func ExtractMetadata(src, baseURL string) (*Metadata, error) {
	return defaultExtractor.ExtractMetadata(src, baseURL)
}

// ExtractMetadata は、OGP・Twitter Card・meta 要素からページ情報を取り出します。
// 相対URLは baseURL で解決します。baseURL が不正な場合は ErrInvalidURL を返します。
func (e *Extractor) ExtractMetadata(src, baseURL string) (*Metadata, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		if err == nil {
			err = fmt.Errorf("絶対URLではありません: %q", baseURL)
		}
		return nil, types.NewParseError(types.ErrInvalidURL, "ExtractMetadata", baseURL, err)
	}

	m := &Metadata{}
	if strings.TrimSpace(src) == "" {
		return m, nil
	}
	doc, err := dom.Parse(src)
	if err != nil {
		return nil, types.NewParseError(types.ErrExtract, "ExtractMetadata", baseURL, err)
	}

	m.Title = e.meta(doc, "og:title", "title")
	if m.Title == "" {
		m.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	m.Description = e.meta(doc, "og:description", "description")
	m.SiteName = e.meta(doc, "og:site_name", "application-name")
	m.OGType = e.meta(doc, "og:type", "")

	m.URL = e.meta(doc, "og:url", "")
	if m.URL == "" {
		m.URL = ResolveURL(base, e.FirstAttr(doc, "href", "link[rel='canonical']"))
	}

	image := e.meta(doc, "og:image", "")
	if image == "" {
		image = e.meta(doc, "twitter:image", "twitter:image")
	}
	m.ImageURL = ResolveURL(base, image)

	m.ImageAlt = e.meta(doc, "og:image:alt", "")
	if m.ImageAlt == "" {
		m.ImageAlt = e.meta(doc, "twitter:image:alt", "twitter:image:alt")
	}

	m.IconURL = e.Favicon(doc, base)
	m.ThemeColor = e.meta(doc, "", "theme-color")
	m.Language = e.Language(doc)
	return m, nil
}

// meta は、property 属性、name 属性の順に meta 要素の content を返します。
func (e *Extractor) meta(doc *goquery.Document, property, name string) string {
	if property != "" {
		if v := e.MetaContent(doc, fmt.Sprintf("meta[property=%q]", property)); v != "" {
			return v
		}
	}
	if name != "" {
		return e.MetaContent(doc, fmt.Sprintf("meta[name=%q]", name))
	}
	return ""
}
