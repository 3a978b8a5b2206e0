package custom

import (
	"slices"
	"strings"
)

// Registry は、ホスト名からカスタム抽出ルールを引くための表です。
// 構築後は変更されません。
type Registry struct {
	extractors map[string]*CustomExtractor
}

// NewRegistry は、主ドメインと別名ドメインのそれぞれを独立したキーとして登録したレジストリを生成します。
// 同じドメインが複数回現れた場合は後のものが優先されます。
func NewRegistry(extractors ...*CustomExtractor) *Registry {
	r := &Registry{extractors: make(map[string]*CustomExtractor)}
	for _, ex := range extractors {
		if ex == nil {
			continue
		}
		for _, domain := range ex.Domains() {
			domain = strings.ToLower(strings.TrimSpace(domain))
			if domain == "" {
				continue
			}
			r.extractors[domain] = ex.Clone()
		}
	}
	return r
}

// Get は、ホスト名に完全一致するルールを返します。ワイルドカードやサブドメインの照合は行いません。
func (r *Registry) Get(host string) (*CustomExtractor, bool) {
	if r == nil {
		return nil, false
	}
	ex, ok := r.extractors[strings.ToLower(host)]
	return ex, ok
}

// Len は、登録されているドメインの数を返します。
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.extractors)
}

// Domains は、登録されているドメインを昇順で返します。
func (r *Registry) Domains() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.extractors))
	for d := range r.extractors {
		out = append(out, d)
	}
	slices.Sort(out)
	return out
}

// Merge は、r に other のルールを上書きした新しいレジストリを返します。r と other は変更しません。
func (r *Registry) Merge(other *Registry) *Registry {
	merged := &Registry{extractors: make(map[string]*CustomExtractor, r.Len()+other.Len())}
	for _, src := range []*Registry{r, other} {
		if src == nil {
			continue
		}
		for d, ex := range src.extractors {
			merged.extractors[d] = ex
		}
	}
	return merged
}

// Selectors は、登録されているすべてのルールが使う CSS セレクタを重複なく昇順で返します。
// セレクタキャッシュの事前コンパイルに使います。
func (r *Registry) Selectors() []string {
	if r == nil {
		return nil
	}
	seen := make(map[string]struct{})
	add := func(css string) {
		if strings.TrimSpace(css) != "" {
			seen[css] = struct{}{}
		}
	}
	for _, ex := range r.extractors {
		for _, f := range ex.fields() {
			if f == nil {
				continue
			}
			for _, s := range f.Selectors {
				add(s.CSS)
			}
		}
		if ex.Content != nil {
			for _, css := range ex.Content.Clean {
				add(css)
			}
			for css := range ex.Content.Transforms {
				add(css)
			}
		}
	}

	out := make([]string, 0, len(seen))
	for css := range seen {
		out = append(out, css)
	}
	slices.Sort(out)
	return out
}
