package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/shouni/go-web-reader/pkg/dom"
)

// domainRule は、セレクタに一致した要素を置き換える関数の組です。
type domainRule struct {
	css string
	fn  replaceFunc
}

// kinjaDomains は、同じ遅延読み込みの YouTube iframe を使うサイト群です。
var kinjaDomains = []string{
	"deadspin.com", "jezebel.com", "lifehacker.com", "kotaku.com", "gizmodo.com",
	"jalopnik.com", "kinja.com", "avclub.com", "clickhole.com", "splinternews.com",
	"theonion.com", "theroot.com", "thetakeout.com", "theinventory.com",
}

var domainRules = buildDomainRules()

func buildDomainRules() map[string][]domainRule {
	r := map[string][]domainRule{
		"www.reddit.com":             {{`div[role="img"]`, redditRoleImage}},
		"www.latimes.com":            {{".trb_ar_la", latimesFigure}},
		"www.nationalgeographic.com": {{".parsys.content", natgeoLeadImage}},
		"www.youtube.com":            {{"iframe", youtubeIframe}},
		"youtu.be":                   {{"iframe", youtubeIframe}},
		"deadline.com":               {{".embed-twitter", twitterBlockquote}},
		"www.apartmenttherapy.com":   {{`div[data-render-react-id="images/LazyPicture"]`, unwrapElement}},
		"news.mynavi.jp":             {{"img", lazyImage}},
		"www.lifehacker.jp":          {{"img", lazyImage}},
		"www.gizmodo.jp":             {{"img", lazyImage}},
		"www.cnn.com": {
			{".zn-body__paragraph, .el__leafmedia--sourced-paragraph", unwrapElement},
			{".media__video--thumbnail", cnnVideoThumbnail},
		},
		"www.abendblatt.de": {
			{"div", unwrapElement},
			{"p", unwrapElement},
		},
		"www.reuters.com": {{".article-subtitle", wrapTag("h4")}},
		"www.newyorker.com": {
			{".caption__credit", wrapTag("figcaption")},
			{".caption__text", wrapTag("figcaption")},
		},
		"www.npr.org": {
			{".bucketwrap.image", wrapTag("figure")},
			{".bucketwrap.image .credit-caption", wrapTag("figcaption")},
		},
		"www.eonline.com": {
			{"div.post-content__image", wrapTag("figure")},
			{"div.post-content__image .image__credits", wrapTag("figcaption")},
		},
		"gothamist.com": {
			{"div.image-left", wrapTag("figure")},
			{"div.image-none", wrapTag("figure")},
			{"div.image-right", wrapTag("figure")},
			{".image-left i", wrapTag("figcaption")},
			{".image-none i", wrapTag("figcaption")},
			{".image-right i", wrapTag("figcaption")},
		},
		"www.buzzfeed.com": {
			{"figure.longform_custom_header_media .longform_header_image_source", wrapTag("figcaption")},
			{"h2", wrapTag("b")},
		},
		"nymag.com":   {{"h1", wrapTag("h2")}},
		"www.vox.com": {{"figure .e-image__meta", wrapTag("figcaption")}},
		"epaper.zeit.de": {
			{".article__author", wrapTag("p")},
			{"byline", wrapTag("p")},
			{"linkbox", wrapTag("p")},
			{"p.title", wrapTag("h1")},
		},
		"twitter.com": {{"s", wrapTag("span")}},
		"uproxx.com": {
			{"div.image", wrapTag("figure")},
			{"div.image .wp-media-credit", wrapTag("figcaption")},
		},
		"www.fool.com":           {{".caption", wrapTag("figcaption")}},
		"mashable.com":           {{".image-credit", wrapTag("figcaption")}},
		"www.washingtonpost.com": {{".pb-caption", wrapTag("figcaption")}},
		"pastebin.com": {
			{"li", wrapTag("p")},
			{"ol", wrapTag("div")},
		},
		"wikipedia.org": {
			{".infobox", wrapTag("figure")},
			{".infobox caption", wrapTag("figcaption")},
		},
	}
	for _, d := range kinjaDomains {
		r[d] = []domainRule{{"iframe", youtubeIframe}}
	}
	return r
}

// HasDomainTransforms は、ドメインに固有の置き換え規則があるかを返します。
func HasDomainTransforms(domain string) bool {
	_, ok := domainRules[strings.ToLower(domain)]
	return ok
}

// ApplyDomainTransforms は、ドメイン固有の置き換え規則をHTML断片に適用します。
// 規則が無いドメインや、置き換えが1つも発生しない場合は入力をそのまま返します。
// 同じ要素に複数の規則が一致した場合は、後の規則が優先されます。
func (e *Extractor) ApplyDomainTransforms(domain, fragment string) string {
	rules, ok := domainRules[strings.ToLower(domain)]
	if !ok {
		return fragment
	}

	doc, err := dom.Parse(fragment)
	if err != nil {
		return fragment
	}

	replace := make(map[*html.Node]replaceFunc)
	for _, rule := range rules {
		for _, n := range e.finder.Find(doc.Selection, rule.css).Nodes {
			replace[n] = rule.fn
		}
	}
	if len(replace) == 0 {
		return fragment
	}

	w := &serializer{replace: replace}
	w.children(doc.Find("head").Get(0))
	w.children(dom.Body(doc))
	return w.sb.String()
}

// ----------------------------------------------------------------------
// 置き換え関数
// ----------------------------------------------------------------------

// redditRoleImage は、背景画像で描かれた画像要素を <img> に置き換えます。
func redditRoleImage(_ *serializer, n *html.Node) (string, bool) {
	src, ok := dom.Attr(n, "data-url")
	if !ok {
		src, ok = styleURL(dom.AttrOr(n, "style", ""))
	}
	if !ok {
		return "", false
	}
	return openTag("img", []html.Attribute{
		{Key: "src", Val: src},
		{Key: "alt", Val: dom.AttrOr(n, "aria-label", "")},
	}), true
}

// styleURL は、style 属性の url(...) の中身を取り出します。
func styleURL(style string) (string, bool) {
	_, rest, found := strings.Cut(style, "url(")
	if !found {
		return "", false
	}
	value, _, _ := strings.Cut(rest, ")")
	return strings.Trim(value, `'"`), true
}

// youtubeIframe は、src を持たない iframe に埋め込みURLを設定します。
func youtubeIframe(w *serializer, n *html.Node) (string, bool) {
	if _, ok := dom.Attr(n, "src"); ok {
		return "", false
	}
	if v, ok := dom.Attr(n, "data-src"); ok {
		return withAttr(w, n, "src", v), true
	}
	if id, ok := strings.CutPrefix(dom.AttrOr(n, "data-recommend-id", ""), "youtube://"); ok {
		return withAttr(w, n, "src", "https://www.youtube.com/embed/"+id), true
	}
	if id, ok := strings.CutPrefix(dom.AttrOr(n, "id", ""), "youtube-"); ok {
		return withAttr(w, n, "src", "https://www.youtube.com/embed/"+id), true
	}
	return "", false
}

func cnnVideoThumbnail(_ *serializer, n *html.Node) (string, bool) {
	imgs := dom.ElementsByTag(n, "img")
	if len(imgs) == 0 {
		return "", false
	}
	src := dom.AttrOr(imgs[0], "src", "")
	if src == "" {
		return "", false
	}
	return `<figure class="media__video--thumbnail">` + openTag("img", []html.Attribute{{Key: "src", Val: src}}) + `</figure>`, true
}

func twitterBlockquote(w *serializer, n *html.Node) (string, bool) {
	return `<blockquote class="twitter-tweet">` + w.inner(n) + `</blockquote>`, true
}

// lazyImage は、遅延読み込み属性から src と srcset を補った <img> を返します。
func lazyImage(_ *serializer, n *html.Node) (string, bool) {
	attrs := copyAttrs(n)
	attrs = fixLazy(attrs, "src", lazyImgSrcAttrs)
	attrs = fixLazy(attrs, "srcset", lazySrcsetAttrs)
	return openTag(dom.TagName(n), attrs), true
}

// wrapTag は、要素の属性と中身を保ったままタグ名を変える置き換え関数を返します。
func wrapTag(tag string) replaceFunc {
	return func(w *serializer, n *html.Node) (string, bool) {
		out := openTag(tag, copyAttrs(n))
		if dom.IsVoid(tag) {
			return out, true
		}
		return out + w.inner(n) + "</" + tag + ">", true
	}
}

func latimesFigure(w *serializer, n *html.Node) (string, bool) {
	figures := dom.ElementsByTag(n, "figure")
	if len(figures) == 0 {
		return "", false
	}
	return "<figure>" + w.inner(figures[0]) + "</figure>", true
}

// natgeoLeadImage は、記事の先頭にリード画像を差し込みます。
// 画像グループの2枚組を優先し、無ければ picturefill の画像を使います。
func natgeoLeadImage(w *serializer, n *html.Node) (string, bool) {
	sel := goquery.NewDocumentFromNode(n).Selection
	lead := ""

	if first := sel.Children().First(); first.HasClass("imageGroup") {
		data := first.Find(".media--medium__container").First().Children().First()
		img1 := data.AttrOr("data-platform-image1-path", "")
		img2 := data.AttrOr("data-platform-image2-path", "")
		if img1 != "" && img2 != "" {
			lead = `<div class="__image-lead__">` +
				openTag("img", []html.Attribute{{Key: "src", Val: img1}}) +
				openTag("img", []html.Attribute{{Key: "src", Val: img2}}) +
				`</div>`
		}
	}

	if lead == "" {
		src, ok := sel.Find(".image.parbase.section .picturefill").First().Attr("data-platform-src")
		if !ok {
			return "", false
		}
		lead = openTag("img", []html.Attribute{{Key: "class", Val: "__image-lead__"}, {Key: "src", Val: src}})
	}

	tag := dom.TagName(n)
	return openTag(tag, copyAttrs(n)) + lead + w.inner(n) + "</" + tag + ">", true
}

func unwrapElement(w *serializer, n *html.Node) (string, bool) {
	return w.inner(n), true
}

// withAttr は、属性を1つ設定した要素のHTMLを返します。
func withAttr(w *serializer, n *html.Node, key, val string) string {
	tag := dom.TagName(n)
	out := openTag(tag, setAttr(copyAttrs(n), key, val))
	if dom.IsVoid(tag) {
		return out
	}
	return out + w.inner(n) + "</" + tag + ">"
}
