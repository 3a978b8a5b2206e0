package custom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExample() *CustomExtractor {
	return &CustomExtractor{
		Domain:           "example.com",
		SupportedDomains: []string{"www.example.com"},
		Title:            &FieldExtractor{Selectors: []SelectorSpec{{CSS: "h1.title"}}},
		Content: &ContentExtractor{
			FieldExtractor: FieldExtractor{Selectors: []SelectorSpec{{CSS: "article"}}},
			Clean:          []string{".ads"},
			Transforms:     map[string]TransformSpec{"h2": Tag("h3")},
		},
	}
}

func TestRegistry_Get(t *testing.T) {
	reg := NewRegistry(newExample())
	assert.Equal(t, 2, reg.Len())

	primary, ok := reg.Get("example.com")
	require.True(t, ok)
	alias, ok := reg.Get("WWW.EXAMPLE.COM")
	require.True(t, ok)
	assert.Equal(t, "example.com", alias.Domain)
	assert.Equal(t, primary.Title.Selectors, alias.Title.Selectors)

	_, ok = reg.Get("sub.example.com")
	assert.False(t, ok, "サブドメインは照合しない")
	_, ok = reg.Get("other.com")
	assert.False(t, ok)
}

func TestRegistry_IndependentCopies(t *testing.T) {
	src := newExample()
	reg := NewRegistry(src)

	primary, _ := reg.Get("example.com")
	alias, _ := reg.Get("www.example.com")
	assert.NotSame(t, primary, alias)

	primary.Title.Selectors[0].CSS = "changed"
	primary.Content.Transforms["h2"] = Tag("h4")

	assert.Equal(t, "h1.title", alias.Title.Selectors[0].CSS)
	assert.Equal(t, Tag("h3"), alias.Content.Transforms["h2"])
	assert.Equal(t, "h1.title", src.Title.Selectors[0].CSS)
}

func TestRegistry_Nil(t *testing.T) {
	var reg *Registry
	_, ok := reg.Get("example.com")
	assert.False(t, ok)
	assert.Equal(t, 0, reg.Len())
	assert.Nil(t, reg.Domains())
	assert.Nil(t, reg.Selectors())
}

func TestRegistry_Merge(t *testing.T) {
	base := NewRegistry(newExample(), &CustomExtractor{Domain: "a.test"})
	override := NewRegistry(&CustomExtractor{
		Domain: "example.com",
		Title:  &FieldExtractor{Selectors: []SelectorSpec{{CSS: "h1.override"}}},
	})

	merged := base.Merge(override)
	assert.Equal(t, []string{"a.test", "example.com", "www.example.com"}, merged.Domains())

	ex, _ := merged.Get("example.com")
	assert.Equal(t, "h1.override", ex.Title.Selectors[0].CSS)
	ex, _ = merged.Get("www.example.com")
	assert.Equal(t, "h1.title", ex.Title.Selectors[0].CSS)

	// 元のレジストリは変更されない
	ex, _ = base.Get("example.com")
	assert.Equal(t, "h1.title", ex.Title.Selectors[0].CSS)
	assert.Equal(t, 3, base.Merge(nil).Len())
}

func TestRegistry_Selectors(t *testing.T) {
	ex := newExample()
	ex.Author = &FieldExtractor{Selectors: []SelectorSpec{{CSS: "meta[name=author]", Attr: "content"}, {CSS: "h1.title"}}}
	reg := NewRegistry(ex)

	assert.Equal(t, []string{".ads", "article", "h1.title", "h2", "meta[name=author]"}, reg.Selectors())
}

func TestInferTransform(t *testing.T) {
	tests := []struct {
		css      string
		expected TransformSpec
		ok       bool
	}{
		{"noscript", TransformSpec{Kind: TransformNoscriptToDiv}, true},
		{"figure noscript img", TransformSpec{Kind: TransformNoscriptToDiv}, true},
		{"img", MoveAttr("data-src", "src"), true},
		{"figure img", MoveAttr("data-src", "src"), true},
		{".lazy-image", MoveAttr("data-src", "src"), true},
		{"img.original", MoveAttr("data-original", "src"), true},
		{".zoomable", MoveAttr("data-src", "src"), true},
		{"picture source", MoveAttr("data-srcset", "srcset"), true},
		{"div.video-wrapper", MoveAttr("data-src", "src"), true},
		{"div.caption", TransformSpec{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.css, func(t *testing.T) {
			got, ok := InferTransform(tt.css)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestInferTransforms_KeepsExplicit(t *testing.T) {
	ex := &CustomExtractor{
		Domain: "x.test",
		Content: &ContentExtractor{Transforms: map[string]TransformSpec{
			"img":         Tag("span"),
			"noscript":    {Kind: TransformNoop},
			"div.caption": {},
		}},
	}
	InferTransforms(ex)

	assert.Equal(t, Tag("span"), ex.Content.Transforms["img"])
	assert.Equal(t, TransformNoscriptToDiv, ex.Content.Transforms["noscript"].Kind)
	assert.Equal(t, TransformNoop, ex.Content.Transforms["div.caption"].Kind)

	InferTransforms(&CustomExtractor{Domain: "no-content.test"})
	InferTransforms(nil)
}
