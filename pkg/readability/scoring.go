// Package readability は、readability 系のスコアリングとクリーニングで本文を抽出します。
//
// 処理は 1 回の呼び出しで完結し、スコアは呼び出しごとの Scores に保持されます。
// パース済みのページは変更せず、破壊的な処理はすべて再パースした作業用コピーに対して行います。
package readability

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/shouni/go-web-reader/pkg/dom"
)

var (
	paragraphScoreTags = regexp.MustCompile(`(?i)^(p|li|span|pre)$`)
	childContentTags   = regexp.MustCompile(`(?i)^(td|blockquote|ol|ul|dl)$`)
	badTags            = regexp.MustCompile(`(?i)^(address|form)$`)
	nonTopCandidate    = regexp.MustCompile(`(?i)^(br|b|i|label|hr|area|base|basefont|input|img|link|meta)$`)

	positiveScore    = regexp.MustCompile(`(?i)article|articlecontent|instapaper_body|blog|body|content|entry-content-asset|entry|hentry|main|Normal|page|pagination|permalink|post|story|text|[-_]copy|\Bcopy`)
	negativeScore    = regexp.MustCompile(`(?i)adbox|advert|author|bio|bookmark|bottom|byline|clear|com-|combx|comment|comment\B|contact|copy|credit|crumb|date|deck|excerpt|featured|foot|footer|footnote|graf|head|info|infotext|instapaper_ignore|jump|linebreak|link|masthead|media|meta|modal|outbrain|promo|pr_|related|respond|roundcontent|scroll|secondary|share|shopping|shoutbox|side|sidebar|sponsor|stamp|sub|summary|tags|tools|widget`)
	photoHints       = regexp.MustCompile(`(?i)figure|photo|image|caption`)
	readabilityAsset = regexp.MustCompile(`(?i)entry-content-asset`)
)

// hNews の (コンテナ, 本文) セレクタの組
var hNewsSelectors = []struct {
	parent string
	child  string
	match  cascadia.Selector
}{
	{parent: ".hentry", child: ".entry-content"},
	{parent: "entry", child: ".entry-content"},
	{parent: ".entry", child: ".entry_content"},
	{parent: ".post", child: ".postbody"},
	{parent: ".post", child: ".post_body"},
	{parent: ".post", child: ".post-body"},
}

func init() {
	for i := range hNewsSelectors {
		hNewsSelectors[i].match = cascadia.MustCompile(hNewsSelectors[i].parent)
	}
}

const hNewsBoost = 80

// Scores は、ノードごとのスコアです。1 回のスコアリングの間だけ使います。
type Scores map[*html.Node]int

// Get は、ノードのスコアを返します。マップに無い場合は明示的なスコア属性を使います。
func (s Scores) Get(n *html.Node) (int, bool) {
	if v, ok := s[n]; ok {
		return v, true
	}
	return scoreFromAttrs(n)
}

// scoreFromAttrs は、data-content-score または score 属性の値を返します。
func scoreFromAttrs(n *html.Node) (int, bool) {
	for _, key := range []string{"data-content-score", "score"} {
		if v, ok := dom.Attr(n, key); ok {
			if score, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return score, true
			}
		}
	}
	return 0, false
}

// ScoreParagraph は、段落テキストのスコアを計算します。
// カンマの数と 50 文字ごとのボーナスを加え、短すぎる段落は減点、中程度の長さは加点します。
func ScoreParagraph(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}

	score := strings.Count(text, ",")
	score += len(text) / 50

	if len(text) < 20 {
		score -= 10
	}
	if len(text) >= 50 && len(text) <= 200 {
		score += 5
	}
	return score
}

// ScoreNode は、タグの種類に応じたノードのスコアを返します。
func ScoreNode(n *html.Node) int {
	tag := dom.TagName(n)
	switch {
	case paragraphScoreTags.MatchString(tag):
		return ScoreParagraph(dom.Text(n))
	case tag == "div":
		return 5
	case childContentTags.MatchString(tag):
		return 3
	case badTags.MatchString(tag):
		return -3
	case tag == "th":
		return -5
	}
	return 0
}

// Weight は、id と class から推定される役割による重みを返します。
// id を先に判定し、class の正負判定は id で 0 のときだけ行います。
func Weight(n *html.Node) int {
	class := dom.AttrOr(n, "class", "")
	id := dom.AttrOr(n, "id", "")
	score := 0

	if id != "" {
		if positiveScore.MatchString(id) {
			score += 25
		}
		if negativeScore.MatchString(id) {
			score -= 25
		}
	}

	if class != "" {
		if score == 0 {
			if positiveScore.MatchString(class) {
				score += 25
			}
			if negativeScore.MatchString(class) {
				score -= 25
			}
		}
		if photoHints.MatchString(class) {
			score += 10
		}
		if readabilityAsset.MatchString(class) {
			score += 25
		}
	}

	return score
}

// LinkDensity は、テキストのうち <a> 要素内にある割合を返します。テキストが無い場合は 0 です。
func LinkDensity(n *html.Node) float64 {
	total := len(dom.Text(n))
	if total == 0 {
		return 0
	}
	linkLen := 0
	for _, a := range dom.ElementsByTag(n, "a") {
		linkLen += len(dom.Text(a))
	}
	return float64(linkLen) / float64(total)
}

// HasSentenceEnd は、テキストが文末の句読点で終わるかを返します。
func HasSentenceEnd(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	switch text[len(text)-1] {
	case '.', '!', '?', ':', ';':
		return true
	}
	return false
}

// ScoreContent は、ドキュメント全体のスコアを計算します。
//
// 1. hNews の既知パターンに一致するコンテナを +80 する
// 2. <p>/<pre> を 2 周走査し、未採点のノードについて親に素点、祖父母に素点の半分を加える
func ScoreContent(doc *goquery.Document) Scores {
	s := make(Scores)

	for _, pair := range hNewsSelectors {
		doc.Find(pair.parent + " " + pair.child).Each(func(_ int, el *goquery.Selection) {
			for p := el.Get(0).Parent; p != nil; p = p.Parent {
				if p.Type == html.ElementNode && pair.match.Match(p) {
					s.addScoreTo(p, hNewsBoost)
					break
				}
			}
		})
	}

	paragraphs := doc.Find("p, pre").Nodes
	for pass := 0; pass < 2; pass++ {
		for _, n := range paragraphs {
			if dom.HasAncestor(n, "head") {
				continue
			}
			if _, scored := s[n]; scored {
				continue
			}

			s[n] = s.getOrInit(n)

			raw := ScoreNode(n)
			if parent := elementParent(n); parent != nil {
				s.addScoreTo(parent, raw)
				if grand := elementParent(parent); grand != nil {
					s.addScoreTo(grand, raw/2)
				}
			}
		}
	}

	return s
}

// getOrInit は、既存のスコアがあればそれを返し、無ければ計算します。
// 計算したときは、その 1/4 を親に加えます。ノード自身のスコアはここでは設定しません。
func (s Scores) getOrInit(n *html.Node) int {
	if v := s[n]; v != 0 {
		return v
	}
	score := ScoreNode(n) + Weight(n)
	if parent := elementParent(n); parent != nil {
		s[parent] += int(float64(score) * 0.25)
	}
	return score
}

func (s Scores) addScoreTo(n *html.Node, amount int) {
	s[n] = s.getOrInit(n) + amount
}

func elementParent(n *html.Node) *html.Node {
	if p := n.Parent; p != nil && p.Type == html.ElementNode {
		return p
	}
	return nil
}

// adjustForLinkDensity は、リンク密度が 0.5 を超える場合にスコアを (1-密度) 倍して四捨五入します。
func adjustForLinkDensity(score int, density float64) int {
	if density > 0.5 {
		return int(math.Round(float64(score) * (1 - density)))
	}
	return score
}
