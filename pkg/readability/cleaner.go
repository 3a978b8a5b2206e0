package readability

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/shouni/go-web-reader/pkg/dom"
)

// KeepClass は、クリーニングで削除させないためのマーカークラスです。
const KeepClass = "hermes-parser-keep"

var keepSelectors = []string{
	`iframe[src^="https://www.youtube.com"]`,
	`iframe[src^="https://www.youtube-nocookie.com"]`,
	`iframe[src^="http://www.youtube.com"]`,
	`iframe[src^="https://player.vimeo"]`,
	`iframe[src^="http://player.vimeo"]`,
	`iframe[src^="https://www.redditmedia.com"]`,
}

var (
	spacerImage = regexp.MustCompile(`(?i)transparent|spacer|blank`)

	candidatesBlacklist = regexp.MustCompile(`(?i)(ad-break|ad-banner|adbox|advert|addthis|agegate|aux|blogger-labels|combx|comment|conversation|disqus|entry-unrelated|extra|foot|header|hidden|loader|login|menu|meta|nav|outbrain|pager|pagination|predicta|presence_control_external|popup|printfriendly|related|remove|remark|rss|share|shoutbox|sidebar|sociable|sponsor|taboola|tools)`)
	candidatesWhitelist = regexp.MustCompile(`(?i)(and|article|body|blogindex|column|content|entry-content-asset|format|hfeed|hentry|hatom|main|page|posts|shadow)`)

	whitelistAttrs = regexp.MustCompile(`(?i)^(src|srcset|sizes|type|href|class|id|alt|xlink:href|width|height)$`)

	topLevelWrapper = regexp.MustCompile(`(?i)^\s*<(html|body)[\s>]`)
)

var headerTags = map[string]bool{"h2": true, "h3": true, "h4": true, "h5": true, "h6": true}

// divToPBlockTags を子孫に持つ div/span は <p> に変換しません。
var divToPBlockTags = []string{"a", "blockquote", "dl", "div", "img", "p", "pre", "table"}

// IsUnlikelyCandidate は、class/id が本文らしくない要素かを判定します。
// <a> は対象外で、ホワイトリストに一致する場合はブラックリストより優先します。
func IsUnlikelyCandidate(n *html.Node) bool {
	if dom.TagName(n) == "a" {
		return false
	}
	class := dom.AttrOr(n, "class", "")
	id := dom.AttrOr(n, "id", "")
	if class == "" && id == "" {
		return false
	}
	combo := class + " " + id
	if candidatesWhitelist.MatchString(combo) {
		return false
	}
	return candidatesBlacklist.MatchString(combo)
}

// ShouldRemoveHeader は、見出し (h2-h6) を削除すべきかを判定します。
func ShouldRemoveHeader(n *html.Node, title string, hasPrecedingParagraph bool) bool {
	if !hasPrecedingParagraph {
		return true
	}
	text := dom.NormalizeSpaces(dom.Text(n))
	if title != "" && text == dom.NormalizeSpaces(title) {
		return true
	}
	if Weight(n) < 0 {
		return true
	}
	return len(text) < 3
}

// ShouldRemoveImage は、src が無い、スペーサー画像である、または小さすぎる画像かを判定します。
// 幅と高さの既定値は 20 です。
func ShouldRemoveImage(n *html.Node) bool {
	src, ok := dom.Attr(n, "src")
	if !ok || spacerImage.MatchString(src) {
		return true
	}
	height := intAttr(n, "height", 20)
	width := intAttr(n, "width", 20)
	return height < 10 || width < 10
}

// IsEmptyParagraph は、テキストも画像も持たない段落かを判定します。
func IsEmptyParagraph(n *html.Node) bool {
	if strings.TrimSpace(dom.Text(n)) != "" {
		return false
	}
	return !dom.HasDescendant(n, "img")
}

func intAttr(n *html.Node, key string, def int) int {
	v, ok := dom.Attr(n, key)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return i
}

// CleanArticle は、結合済みの本文HTMLを作業用コピーとしてパースし、クリーニングを順に適用します。
//
//  1. 段落相当の div/span を <p> に変換
//  2. h1 の処理 (3 個未満は削除、3 個以上は h2 に変換)
//  3. 保護対象の判定
//  4. 本文らしくない要素の除去
//  5. ul/ol/table/div/button/form の条件付き除去
//  6. 見出しの除去
//  7. 画像の除去
//  8. 空段落の除去
//  9. 属性のホワイトリスト適用
//  10. 連続 <br> の段落化
//  11. 最上位の html/body を div に変換
func CleanArticle(fragment, title string) string {
	body, err := dom.ParseFragment(fragment)
	if err != nil {
		return fragment
	}

	topAttrs := body.Get(0).Attr
	convertDivsToParagraphs(body.Get(0))

	// ネストした <p> を正規化するため、一度直列化して再パースする
	converted := dom.InnerHTML(body.Get(0))
	body, err = dom.ParseFragment(converted)
	if err != nil {
		return converted
	}
	body = processH1Tags(body, converted)

	root := body.Get(0)
	root.Attr = topAttrs
	keep := buildKeepMatcher(body)

	stripUnlikely(root, keep)
	cleanConditionally(root, keep)
	cleanHeaders(root, title)
	cleanImages(root)
	cleanEmptyParagraphs(root)
	filterAttributes(root)
	BrsToPs(root)

	if topLevelWrapper.MatchString(fragment) {
		return rewriteTopLevel(root)
	}
	return dom.InnerHTML(root)
}

// convertDivsToParagraphs は、ブロック要素を子孫に持たない div/span を <p> に変換します。
// 変換済みの要素の子孫は、変換しません。
func convertDivsToParagraphs(root *html.Node) {
	converted := make(map[*html.Node]bool)
	for _, n := range dom.ElementsByTag(root, "div", "span") {
		if hasConvertedAncestor(n, converted) {
			continue
		}
		if dom.HasDescendant(n, divToPBlockTags...) {
			continue
		}
		dom.Rename(n, "p")
		converted[n] = true
	}
}

func hasConvertedAncestor(n *html.Node, converted map[*html.Node]bool) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if converted[p] {
			return true
		}
	}
	return false
}

// processH1Tags は、h1 が 3 個未満なら削除し、3 個以上なら h2 に変換します。
// 結果が空になる場合は変換前の内容を使います。
func processH1Tags(body *goquery.Selection, before string) *goquery.Selection {
	h1s := dom.ElementsByTag(body.Get(0), "h1")
	if len(h1s) == 0 {
		return body
	}

	for _, h1 := range h1s {
		if len(h1s) < 3 {
			dom.Remove(h1)
		} else {
			dom.Rename(h1, "h2")
		}
	}

	if strings.TrimSpace(dom.InnerHTML(body.Get(0))) != "" {
		return body
	}
	restored, err := dom.ParseFragment(before)
	if err != nil {
		return body
	}
	return restored
}

// keepMatcher は、保護対象の要素を判定します。
type keepMatcher struct {
	selectors []string
}

// buildKeepMatcher は、作業用ドキュメントに存在する埋め込み iframe のセレクタとマーカークラスを集めます。
func buildKeepMatcher(body *goquery.Selection) keepMatcher {
	var km keepMatcher
	for _, sel := range keepSelectors {
		if body.Find(sel).Length() > 0 {
			km.selectors = append(km.selectors, sel)
		}
	}
	km.selectors = append(km.selectors, "."+KeepClass)
	return km
}

// shouldKeep は、要素自身が保護対象のセレクタに一致するか、子孫にマーカークラスを持つ場合に true を返します。
// 埋め込み iframe を含むだけの要素は保護しません。
func (km keepMatcher) shouldKeep(n *html.Node) bool {
	if dom.HasClass(n, KeepClass) {
		return true
	}
	s := goquery.NewDocumentFromNode(n).Selection
	for _, sel := range km.selectors {
		if s.Is(sel) {
			return true
		}
	}
	return s.Find("."+KeepClass).Length() > 0
}

func stripUnlikely(root *html.Node, keep keepMatcher) {
	for _, n := range dom.Elements(root) {
		if n == root {
			continue
		}
		if IsUnlikelyCandidate(n) && !keep.shouldKeep(n) {
			dom.Remove(n)
		}
	}
}

// effectiveWeight は、明示的なスコア属性があればそれを、無ければ Weight を返します。
func effectiveWeight(n *html.Node) int {
	if score, ok := scoreFromAttrs(n); ok {
		return score
	}
	return Weight(n)
}

func cleanConditionally(root *html.Node, keep keepMatcher) {
	for _, n := range dom.ElementsByTag(root, "ul", "ol", "table", "div", "button", "form") {
		if keep.shouldKeep(n) {
			continue
		}
		weight := effectiveWeight(n)
		if weight < 0 || removeUnlessContent(n, weight) {
			dom.Remove(n)
		}
	}
}

// removeUnlessContent は、本文らしさの指標から要素を削除すべきかを判定します。
// entry-content-asset クラスを持つ要素は常に残します。
func removeUnlessContent(n *html.Node, weight int) bool {
	if dom.HasClass(n, "entry-content-asset") {
		return false
	}

	content := dom.NormalizeSpaces(dom.Text(n))
	if strings.Count(content, ",") >= 10 {
		return false
	}

	pCount := len(dom.ElementsByTag(n, "p"))
	inputCount := len(dom.ElementsByTag(n, "input", "textarea", "select", "button"))
	if float64(inputCount) > float64(pCount)/3 {
		return true
	}

	contentLength := len(content)
	if contentLength < 25 && !dom.HasDescendant(n, "img") {
		return true
	}

	density := LinkDensity(n)
	if weight < 25 && density > 0.2 && contentLength > 75 {
		return true
	}

	if weight >= 25 && density > 0.5 {
		tag := dom.TagName(n)
		if tag == "ol" || tag == "ul" {
			if prev := dom.PrevElementSibling(n); prev != nil {
				if strings.HasSuffix(dom.NormalizeSpaces(dom.Text(prev)), ":") {
					return false
				}
			}
		}
		return true
	}

	return dom.HasDescendant(n, "script") && contentLength < 150
}

// cleanHeaders は、文書順に走査して段落より前にある見出しや不要な見出しを削除します。
func cleanHeaders(root *html.Node, title string) {
	seenParagraph := false
	for _, n := range dom.Elements(root) {
		tag := dom.TagName(n)
		if tag == "p" {
			seenParagraph = true
		}
		if headerTags[tag] && ShouldRemoveHeader(n, title, seenParagraph) {
			dom.Remove(n)
		}
	}
}

func cleanImages(root *html.Node) {
	for _, n := range dom.ElementsByTag(root, "img") {
		if ShouldRemoveImage(n) {
			dom.Remove(n)
		}
	}
}

func cleanEmptyParagraphs(root *html.Node) {
	for _, n := range dom.ElementsByTag(root, "p") {
		if IsEmptyParagraph(n) {
			dom.Remove(n)
		}
	}
}

// filterAttributes は、ホワイトリストに無い属性を取り除きます。
func filterAttributes(root *html.Node) {
	for _, n := range dom.Elements(root) {
		kept := n.Attr[:0]
		for _, a := range n.Attr {
			name := a.Key
			if a.Namespace != "" {
				name = a.Namespace + ":" + a.Key
			}
			if whitelistAttrs.MatchString(name) {
				kept = append(kept, a)
			}
		}
		n.Attr = kept
	}
}

// rewriteTopLevel は、最上位の body を属性を保ったまま <div> として出力します。
func rewriteTopLevel(root *html.Node) string {
	var sb strings.Builder
	sb.WriteString("<div")
	for _, a := range root.Attr {
		sb.WriteString(" " + a.Key + `="` + dom.EscapeAttr(a.Val) + `"`)
	}
	sb.WriteString(">")
	sb.WriteString(dom.InnerHTML(root))
	sb.WriteString("</div>")
	return sb.String()
}
