package client

import (
	"context"
	"fmt"

	"github.com/shouni/go-web-reader/pkg/format"
	"github.com/shouni/go-web-reader/pkg/types"
)

// ReaderResult は、リーダー表示向けに ParseResult を平坦化した結果です。
// 値が無いフィールドはゼロ値になり、nil を持ちません。
type ReaderResult struct {
	Title            string `json:"title"`
	Author           string `json:"author"`
	Excerpt          string `json:"excerpt"`
	Content          string `json:"content"`
	URL              string `json:"url"`
	SiteName         string `json:"site_name"`
	Domain           string `json:"domain"`
	Language         string `json:"language"`
	LeadImageURL     string `json:"lead_image_url"`
	Favicon          string `json:"favicon"`
	ThemeColor       string `json:"theme_color"`
	PublishedMS      int64  `json:"published_ms"`
	WordCount        int    `json:"word_count"`
	TotalPages       int    `json:"total_pages"`
	RenderedPages    int    `json:"rendered_pages"`
	HasVideoMetadata bool   `json:"has_video_metadata"`
	VideoURL         string `json:"video_url"`
}

// ToReaderResult は、ParseResult を ReaderResult に変換します。
// 抜粋が無ければ説明文を使い、ページ数が未設定なら1とします。
func ToReaderResult(r *types.ParseResult) *ReaderResult {
	if r == nil {
		return &ReaderResult{TotalPages: 1, RenderedPages: 1}
	}
	rr := &ReaderResult{
		Title:            r.Title,
		Author:           r.Author,
		Excerpt:          r.Excerpt,
		Content:          r.Content,
		URL:              r.URL,
		SiteName:         r.SiteName,
		Domain:           r.Domain,
		Language:         r.Language,
		LeadImageURL:     r.LeadImageURL,
		Favicon:          r.Favicon,
		ThemeColor:       r.ThemeColor,
		WordCount:        max(r.WordCount, 0),
		TotalPages:       r.TotalPages,
		RenderedPages:    r.RenderedPages,
		HasVideoMetadata: r.VideoMetadata != nil,
		VideoURL:         r.VideoURL,
	}
	if rr.Excerpt == "" {
		rr.Excerpt = r.Description
	}
	if r.DatePublished != nil {
		rr.PublishedMS = r.DatePublished.UnixMilli()
	}
	if rr.TotalPages <= 0 {
		rr.TotalPages = 1
	}
	if rr.RenderedPages <= 0 {
		rr.RenderedPages = 1
	}
	return rr
}

// ExtractReader は、HTML出力の既定クライアントで HTML を抽出し、ReaderResult を返します。
// 抽出中のパニックは ErrInternal のエラーとして返します。
func ExtractReader(ctx context.Context, src, pageURL string) (*ReaderResult, error) {
	return New(WithContentType(format.HTML)).Read(ctx, src, pageURL)
}

// Read は、ParseHTML の結果を ReaderResult として返します。
// 抽出中のパニックは ErrInternal のエラーとして返します。
func (c *Client) Read(ctx context.Context, src, pageURL string) (rr *ReaderResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Error().Interface("panic", rec).Str("url", pageURL).Msg("抽出中にパニックが発生しました")
			rr = nil
			err = types.NewParseError(types.ErrInternal, "Read", pageURL, fmt.Errorf("panic: %v", rec))
		}
	}()

	r, err := c.ParseHTML(ctx, src, pageURL)
	if err != nil {
		return nil, err
	}
	return ToReaderResult(r), nil
}
