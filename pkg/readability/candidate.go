package readability

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/shouni/go-web-reader/pkg/dom"
)

// MinCandidateLength は、候補として採用する本文テキストの最小長です。
const MinCandidateLength = 80

// FindTopCandidate は、最もスコアの高い候補ノードとその素点を返します。
//
// body/html と非候補タグは対象外です。リンク密度が 0.5 を超える候補は減点し、
// 同点の場合は文書順で先に見つかったものを残します。
// 0 を超える候補が無い場合は body を返します。
func FindTopCandidate(doc *goquery.Document, scores Scores) (*html.Node, int) {
	var best *html.Node
	bestRaw := 0
	top := 0

	for _, n := range doc.Find("*").Nodes {
		score, ok := scores.Get(n)
		if !ok || score == 0 {
			continue
		}
		tag := dom.TagName(n)
		if nonTopCandidate.MatchString(tag) || tag == "body" || tag == "html" {
			continue
		}

		adjusted := adjustForLinkDensity(score, LinkDensity(n))
		if adjusted > top {
			top = adjusted
			best = n
			bestRaw = score
		}
	}

	if best == nil {
		body := dom.Body(doc)
		if body == nil {
			return nil, 0
		}
		score, _ := scores.Get(body)
		return body, score
	}
	return best, bestRaw
}

// MergeSiblings は、候補の兄弟ノードのうち本文の一部と判断できるものを結合したHTMLを返します。
// 候補のみの場合は候補自身のHTMLを、複数の場合は文書順に <div> で包んだHTMLを返します。
func MergeSiblings(candidate *html.Node, topScore int, scores Scores) string {
	parent := candidate.Parent
	if parent == nil {
		return dom.OuterHTML(candidate)
	}

	threshold := max(10, int(float64(topScore)*0.25))
	candidateClass := dom.AttrOr(candidate, "class", "")

	var included []*html.Node
	for child := parent.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.ElementNode {
			continue
		}
		tag := dom.TagName(child)
		if nonTopCandidate.MatchString(tag) {
			continue
		}

		if child == candidate {
			included = append(included, child)
			continue
		}

		score, _ := scores.Get(child)
		if score <= 0 {
			continue
		}

		density := LinkDensity(child)
		if density >= 0.5 {
			continue
		}
		bonus := 0
		if density < 0.05 {
			bonus += 20
		}
		if class := dom.AttrOr(child, "class", ""); class != "" && class == candidateClass {
			bonus += int(float64(topScore) * 0.2)
		}

		if score+bonus >= threshold {
			included = append(included, child)
			continue
		}

		if tag == "p" {
			text := dom.Text(child)
			length := len(dom.NormalizeSpaces(text))
			if length > 80 && density < 0.25 {
				included = append(included, child)
				continue
			}
			if length <= 80 && density == 0 && HasSentenceEnd(text) {
				included = append(included, child)
			}
		}
	}

	if len(included) <= 1 {
		return dom.OuterHTML(candidate)
	}

	var sb strings.Builder
	sb.WriteString("<div>")
	for _, n := range included {
		sb.WriteString(dom.OuterHTML(n))
	}
	sb.WriteString("</div>")
	return sb.String()
}

// Extract は、スコアリング、候補選択、兄弟の結合、クリーニングを順に行い本文HTMLを返します。
// クリーニング後にテキストも画像も残らない場合は false を返します。
func Extract(doc *goquery.Document, title string) (string, bool) {
	scores := ScoreContent(doc)

	candidate, top := FindTopCandidate(doc, scores)
	if candidate == nil {
		return "", false
	}

	// 短すぎる候補は採用せず body を使う
	if len(dom.NormalizeSpaces(dom.Text(candidate))) < MinCandidateLength {
		if body := dom.Body(doc); body != nil && body != candidate {
			candidate = body
			top, _ = scores.Get(body)
		}
	}

	merged := MergeSiblings(candidate, top, scores)
	cleaned := CleanArticle(merged, title)
	if !hasContent(cleaned) {
		return "", false
	}
	return cleaned, true
}

func hasContent(fragment string) bool {
	body, err := dom.ParseFragment(fragment)
	if err != nil {
		return false
	}
	if dom.NormalizeSpaces(body.Text()) != "" {
		return true
	}
	return body.Find("img").Length() > 0
}
