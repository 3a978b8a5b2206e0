package feed

import (
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	textUtils "github.com/shouni/go-utils/text"

	"github.com/shouni/go-web-reader/pkg/fields"
)

// LinkSource は、リンクアイテムのリストを提供できる任意の型を表します。
// このインターフェースが抽象化の境界線となります。
type LinkSource interface {
	GetLinks() []string
}

// FeedAdapter は gofeed.Feed を LinkSource に適合させるためのアダプターです。
// gofeed.Feed の具体的な構造への依存を内部に閉じ込めます。
type FeedAdapter struct {
	*gofeed.Feed
}

// NewFeedAdapter は gofeed.Feed から新しいアダプターを作成します。
func NewFeedAdapter(feed *gofeed.Feed) *FeedAdapter {
	return &FeedAdapter{Feed: feed}
}

// GetLinks は LinkSource インターフェースを満たし、gofeed.Feed からリンクを抽出します。
// 相対リンクはフィードのリンクで解決し、重複したリンクは最初の1件だけを残します。
func (a *FeedAdapter) GetLinks() []string {
	if a.Feed == nil || len(a.Items) == 0 {
		return []string{}
	}

	urls := make([]string, 0, len(a.Items))
	seen := make(map[string]bool, len(a.Items))
	for _, item := range a.Items {
		link := a.resolve(item.Link)
		if link == "" || seen[link] {
			continue
		}
		seen[link] = true
		urls = append(urls, link)
	}
	return urls
}

// Item は、フィードの1アイテムの要約です。
type Item struct {
	Title       string           `json:"title"`
	Link        string           `json:"link"`
	Published   *time.Time       `json:"published,omitempty"`
	Description string           `json:"description,omitempty"`
	Metadata    *fields.Metadata `json:"metadata,omitempty"`
}

// Items は、リンクを持つアイテムの要約を返します。タイトルと説明文の空白は正規化します。
func (a *FeedAdapter) Items() []Item {
	if a.Feed == nil {
		return nil
	}
	items := make([]Item, 0, len(a.Feed.Items))
	for _, it := range a.Feed.Items {
		link := a.resolve(it.Link)
		if link == "" {
			continue
		}
		item := Item{
			Title:       textUtils.NormalizeText(it.Title),
			Link:        link,
			Description: textUtils.NormalizeText(it.Description),
		}
		switch {
		case it.PublishedParsed != nil:
			t := it.PublishedParsed.UTC()
			item.Published = &t
		case it.UpdatedParsed != nil:
			t := it.UpdatedParsed.UTC()
			item.Published = &t
		}
		items = append(items, item)
	}
	return items
}

// resolve は、リンクをフィードのリンクを基準に絶対URLへ解決します。
func (a *FeedAdapter) resolve(link string) string {
	link = strings.TrimSpace(link)
	if link == "" || a.Feed.Link == "" {
		return link
	}
	base, err := url.Parse(a.Feed.Link)
	if err != nil {
		return link
	}
	u, err := base.Parse(link)
	if err != nil {
		return link
	}
	return u.String()
}

// GetAllLinks は LinkSource インターフェースを満たすオブジェクトからリンクを抽出する汎用関数です。
// この関数は LinkSource 実装の詳細を知る必要がありません。
func GetAllLinks(source LinkSource) []string {
	if source == nil {
		return []string{}
	}
	return source.GetLinks()
}
