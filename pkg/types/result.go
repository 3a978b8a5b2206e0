package types

import (
	"strings"
	"time"
)

// ParseResult は、1ページ (追跡した次ページを含む) の抽出結果です。
// 文字列フィールドは、値が見つからなかった場合は空文字列になります。
type ParseResult struct {
	URL           string         `json:"url"`
	Domain        string         `json:"domain"`
	Title         string         `json:"title"`
	Content       string         `json:"content"`
	Author        string         `json:"author,omitempty"`
	DatePublished *time.Time     `json:"date_published,omitempty"`
	LeadImageURL  string         `json:"lead_image_url,omitempty"`
	Dek           string         `json:"dek,omitempty"`
	Excerpt       string         `json:"excerpt,omitempty"`
	Description   string         `json:"description,omitempty"`
	WordCount     int            `json:"word_count"`
	Direction     string         `json:"direction,omitempty"`
	SiteName      string         `json:"site_name,omitempty"`
	SiteTitle     string         `json:"site_title,omitempty"`
	SiteImage     string         `json:"site_image,omitempty"`
	Language      string         `json:"language,omitempty"`
	ThemeColor    string         `json:"theme_color,omitempty"`
	Favicon       string         `json:"favicon,omitempty"`
	VideoURL      string         `json:"video_url,omitempty"`
	VideoMetadata map[string]any `json:"video_metadata,omitempty"`
	NextPageURL   string         `json:"next_page_url,omitempty"`
	TotalPages    int            `json:"total_pages,omitempty"`
	RenderedPages int            `json:"rendered_pages,omitempty"`

	// Extended は、抽出ルールの extend で定義された追加フィールドです。
	Extended map[string][]string `json:"extended,omitempty"`
}

// IsEmpty は、タイトルと本文の両方が空の場合に true を返します。
func (r *ParseResult) IsEmpty() bool {
	return r.Title == "" && r.Content == ""
}

func (r *ParseResult) HasAuthor() bool { return r.Author != "" }

func (r *ParseResult) HasDate() bool { return r.DatePublished != nil }

func (r *ParseResult) HasImage() bool { return r.LeadImageURL != "" }

// FormatMarkdown は、メタデータの見出しを付けた Markdown 文書を組み立てます。
// Content は、Markdown 形式で抽出されていることを前提とします。
func (r *ParseResult) FormatMarkdown() string {
	var parts []string

	if r.Title != "" {
		parts = append(parts, "# "+r.Title)
	}

	var meta []string
	if r.Author != "" {
		meta = append(meta, "By "+r.Author)
	}
	if r.DatePublished != nil {
		meta = append(meta, r.DatePublished.UTC().Format("2006-01-02"))
	}
	if len(meta) > 0 {
		parts = append(parts, strings.Join(meta, " | "))
	}

	if r.URL != "" {
		parts = append(parts, "Source: "+r.URL)
	}

	// 要約は excerpt を優先し、無ければ description を使う
	switch {
	case r.Excerpt != "":
		parts = append(parts, "> "+r.Excerpt)
	case r.Description != "":
		parts = append(parts, "> "+r.Description)
	}

	if r.LeadImageURL != "" {
		parts = append(parts, "![Lead Image]("+r.LeadImageURL+")")
	}

	if r.Content != "" {
		if len(parts) > 0 {
			parts = append(parts, "---")
		}
		parts = append(parts, r.Content)
	}

	return strings.Join(parts, "\n\n")
}
