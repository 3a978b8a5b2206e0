// Package extract は、サイト別の抽出ルールに従って本文のHTMLを取り出します。
//
// 一致した要素ごとに、子を変換規則付きで書き出し、作業用のコピーをパースし直してから掃除を行います。
// 呼び出し元のドキュメントは変更しません。
package extract

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/shouni/go-web-reader/pkg/custom"
	"github.com/shouni/go-web-reader/pkg/dom"
)

// Extractor は、Finder を使って本文抽出のプロセスを管理します。
type Extractor struct {
	finder Finder
}

// NewExtractor は、新しいExtractorのインスタンスを生成します。finder が nil の場合は新しいセレクタキャッシュを使います。
func NewExtractor(finder Finder) *Extractor {
	if finder == nil {
		finder = dom.NewSelectorCache()
	}
	return &Extractor{finder: finder}
}

// Content は、最初に一致したセレクタから本文のHTMLを取り出します。
// AllowMultiple が true の場合は、すべての一致を文書順に連結します。
func (e *Extractor) Content(doc *goquery.Document, ce *custom.ContentExtractor) (string, bool) {
	parts, ok := e.ContentAll(doc, ce)
	if !ok {
		return "", false
	}
	return strings.Join(parts, ""), true
}

// ContentAll は、最初に一致したセレクタの要素ごとに、変換と掃除を適用した内部HTMLを返します。
// AllowMultiple が false の場合は、最初の一致だけを使います。
func (e *Extractor) ContentAll(doc *goquery.Document, ce *custom.ContentExtractor) ([]string, bool) {
	if doc == nil || ce == nil {
		return nil, false
	}

	for _, spec := range ce.Selectors {
		if strings.TrimSpace(spec.CSS) == "" {
			continue
		}
		matches := e.finder.Find(doc.Selection, spec.CSS)
		if matches.Length() == 0 {
			continue
		}

		var results []string
		matches.EachWithBreak(func(i int, s *goquery.Selection) bool {
			results = append(results, e.process(s, ce))
			return ce.AllowMultiple
		})
		return results, true
	}
	return nil, false
}

// process は、1つの一致要素を本文のHTMLへ変換します。
func (e *Extractor) process(match *goquery.Selection, ce *custom.ContentExtractor) string {
	// 1. 変換規則を適用しながら子を書き出す
	w := &serializer{transforms: e.collectTransforms(match, ce.Transforms), rewrite: true}
	w.children(match.Get(0))
	transformed := w.sb.String()

	// 2. 作業用のコピーをパースし直して掃除する
	doc, err := dom.Parse(transformed)
	if err != nil {
		return transformed
	}
	root := documentNode(doc)

	if ce.DefaultCleaner {
		defaultClean(root)
	}
	for _, css := range ce.Clean {
		e.finder.Find(doc.Selection, css).Remove()
	}

	// 3. 見出しと空リンクの後処理
	fixHeadings(root)
	rewriteEmptyLinks(root)

	return dom.FragmentHTML(doc)
}

// collectTransforms は、一致要素の子孫に対して適用する変換規則を、ノードごとに求めます。
// 複数のセレクタが同じノードに一致した場合は、セレクタの辞書順で後のものが優先されます。
func (e *Extractor) collectTransforms(match *goquery.Selection, transforms map[string]custom.TransformSpec) map[*html.Node]custom.TransformSpec {
	if len(transforms) == 0 {
		return nil
	}

	keys := make([]string, 0, len(transforms))
	for css := range transforms {
		keys = append(keys, css)
	}
	sort.Strings(keys)

	out := make(map[*html.Node]custom.TransformSpec)
	for _, css := range keys {
		t := transforms[css]
		if t.Kind == custom.TransformNoop || t.Kind == "" {
			continue
		}
		for _, n := range e.finder.Find(match, css).Nodes {
			out[n] = t
		}
	}
	return out
}
