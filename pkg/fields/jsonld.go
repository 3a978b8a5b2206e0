package fields

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shouni/go-web-reader/pkg/dom"
)

// articleTypes は、本文を持つとみなす JSON-LD の @type です。
var articleTypes = []string{"NewsArticle", "BlogPosting"}

// graphKeys は、記事を内包しうるキーです。他のキーより先に探索します。
var graphKeys = []string{"@graph", "graph", "mainEntity", "mainEntityOfPage", "itemListElement"}

// ArticleBodyFromJSONLD は、JSON-LD の記事データから articleBody を取り出します。
// 解釈できない script は読み飛ばし、空白だけの本文は見つからなかったものとして扱います。
func (e *Extractor) ArticleBodyFromJSONLD(doc *goquery.Document) (string, bool) {
	for _, n := range e.cache.Find(doc.Selection, `script[type="application/ld+json"]`).Nodes {
		var v any
		if err := json.Unmarshal([]byte(dom.Text(n)), &v); err != nil {
			continue
		}
		if body, ok := findArticleBody(v); ok && strings.TrimSpace(body) != "" {
			return body, true
		}
	}
	return "", false
}

func findArticleBody(v any) (string, bool) {
	switch val := v.(type) {
	case map[string]any:
		if isArticle(val["@type"]) {
			if body, ok := articleBody(val["articleBody"]); ok {
				return body, true
			}
		}
		for _, k := range graphKeys {
			if child, ok := val[k]; ok {
				if body, ok := findArticleBody(child); ok {
					return body, true
				}
			}
		}
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if body, ok := findArticleBody(val[k]); ok {
				return body, true
			}
		}
	case []any:
		for _, child := range val {
			if body, ok := findArticleBody(child); ok {
				return body, true
			}
		}
	}
	return "", false
}

// isArticle は、@type (文字列または配列) が記事の型かどうかを大文字小文字を区別せずに判定します。
func isArticle(t any) bool {
	switch val := t.(type) {
	case string:
		for _, a := range articleTypes {
			if strings.EqualFold(val, a) {
				return true
			}
		}
	case []any:
		for _, child := range val {
			if isArticle(child) {
				return true
			}
		}
	}
	return false
}

// articleBody は、文字列または文字列の配列の本文を返します。配列は空行で連結します。
func articleBody(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case []any:
		var parts []string
		for _, child := range val {
			if s, ok := child.(string); ok {
				parts = append(parts, s)
			}
		}
		joined := strings.Join(parts, "\n\n")
		return joined, joined != ""
	}
	return "", false
}
