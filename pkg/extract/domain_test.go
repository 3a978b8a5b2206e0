package extract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shouni/go-web-reader/pkg/extract"
)

func TestApplyDomainTransforms(t *testing.T) {
	tests := []struct {
		name     string
		domain   string
		input    string
		expected string
	}{
		{
			name:     "reddit の背景画像",
			domain:   "www.reddit.com",
			input:    `<div role="img" style="background-image: url('https://i.redd.it/x.jpg')" aria-label="A cat"></div>`,
			expected: `<img src="https://i.redd.it/x.jpg" alt="A cat" />`,
		},
		{
			name:     "reddit の data-url",
			domain:   "www.reddit.com",
			input:    `<div role="img" data-url="u.png"></div>`,
			expected: `<img src="u.png" alt="" />`,
		},
		{
			name:     "YouTube の推奨ID",
			domain:   "www.youtube.com",
			input:    `<iframe data-recommend-id="youtube://abc123"></iframe>`,
			expected: `<iframe data-recommend-id="youtube://abc123" src="https://www.youtube.com/embed/abc123"></iframe>`,
		},
		{
			name:     "YouTube の src はそのまま",
			domain:   "youtu.be",
			input:    `<iframe src="https://www.youtube.com/embed/a"></iframe>`,
			expected: `<iframe src="https://www.youtube.com/embed/a"></iframe>`,
		},
		{
			name:     "Kinja の id からの埋め込み",
			domain:   "deadspin.com",
			input:    `<iframe id="youtube-XYZ"></iframe>`,
			expected: `<iframe id="youtube-XYZ" src="https://www.youtube.com/embed/XYZ"></iframe>`,
		},
		{
			name:     "Kinja の data-src",
			domain:   "Jezebel.com",
			input:    `<iframe data-src="https://www.youtube.com/embed/q"></iframe>`,
			expected: `<iframe data-src="https://www.youtube.com/embed/q" src="https://www.youtube.com/embed/q"></iframe>`,
		},
		{
			name:     "CNN の段落と動画サムネイル",
			domain:   "www.cnn.com",
			input:    `<div class="zn-body__paragraph">Para <b>one</b></div><div class="media__video--thumbnail"><img src="t.jpg"></div>`,
			expected: `Para <b>one</b><figure class="media__video--thumbnail"><img src="t.jpg" /></figure>`,
		},
		{
			name:     "Deadline のツイート埋め込み",
			domain:   "deadline.com",
			input:    `<div class="embed-twitter"><p>tweet</p></div>`,
			expected: `<blockquote class="twitter-tweet"><p>tweet</p></blockquote>`,
		},
		{
			name:     "マイナビの遅延読み込み画像",
			domain:   "news.mynavi.jp",
			input:    `<img data-src="a.jpg">`,
			expected: `<img data-src="a.jpg" src="a.jpg" />`,
		},
		{
			name:     "LA Times の figure",
			domain:   "www.latimes.com",
			input:    `<div class="trb_ar_la"><figure class="f"><img src="a.jpg"></figure><p>x</p></div>`,
			expected: `<figure><img src="a.jpg" /></figure>`,
		},
		{
			name:     "National Geographic の picturefill",
			domain:   "www.nationalgeographic.com",
			input:    `<div class="parsys content"><div class="image parbase section"><div class="picturefill" data-platform-src="lead.jpg"></div></div><p>Body</p></div>`,
			expected: `<div class="parsys content"><img class="__image-lead__" src="lead.jpg" /><div class="image parbase section"><div class="picturefill" data-platform-src="lead.jpg"></div></div><p>Body</p></div>`,
		},
		{
			name:     "National Geographic の画像グループ",
			domain:   "www.nationalgeographic.com",
			input:    `<div class="parsys content"><div class="imageGroup"><div class="media--medium__container"><div data-platform-image1-path="1.jpg" data-platform-image2-path="2.jpg"></div></div></div></div>`,
			expected: `<div class="parsys content"><div class="__image-lead__"><img src="1.jpg" /><img src="2.jpg" /></div><div class="imageGroup"><div class="media--medium__container"><div data-platform-image1-path="1.jpg" data-platform-image2-path="2.jpg"></div></div></div></div>`,
		},
		{
			name:     "入れ子の unwrap",
			domain:   "www.abendblatt.de",
			input:    `<div><p>Text</p></div>`,
			expected: "Text",
		},
		{
			name:     "タグの付け替え",
			domain:   "nymag.com",
			input:    `<h1 class="t">Title</h1>`,
			expected: `<h2 class="t">Title</h2>`,
		},
		{
			name:     "入れ子のタグの付け替え",
			domain:   "www.npr.org",
			input:    `<div class="bucketwrap image"><img src="a.jpg"><div class="credit-caption">Credit</div></div>`,
			expected: `<figure class="bucketwrap image"><img src="a.jpg" /><figcaption class="credit-caption">Credit</figcaption></figure>`,
		},
		{
			name:     "規則の無いドメインは入力のまま",
			domain:   "example.com",
			input:    `<p>x`,
			expected: `<p>x`,
		},
		{
			name:     "一致が無い場合は入力のまま",
			domain:   "nymag.com",
			input:    `<p>x`,
			expected: `<p>x`,
		},
	}

	e := newExtractor(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, e.ApplyDomainTransforms(tt.domain, tt.input))
		})
	}
}

func TestHasDomainTransforms(t *testing.T) {
	assert.True(t, extract.HasDomainTransforms("JEZEBEL.com"))
	assert.True(t, extract.HasDomainTransforms("wikipedia.org"))
	assert.False(t, extract.HasDomainTransforms("example.com"))
}
