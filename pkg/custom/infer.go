package custom

import "strings"

// InferTransforms は、Noop (または未指定) の変換をセレクタ文字列から推論した変換で置き換えます。
func InferTransforms(ex *CustomExtractor) {
	if ex == nil || ex.Content == nil {
		return
	}
	for css, t := range ex.Content.Transforms {
		if t.Kind != TransformNoop && t.Kind != "" {
			continue
		}
		if inferred, ok := InferTransform(css); ok {
			ex.Content.Transforms[css] = inferred
		} else {
			ex.Content.Transforms[css] = TransformSpec{Kind: TransformNoop}
		}
	}
}

// InferTransform は、セレクタ文字列から遅延読み込みなどに対応する変換を推論します。
func InferTransform(css string) (TransformSpec, bool) {
	s := strings.ToLower(strings.TrimSpace(css))
	switch {
	case strings.Contains(s, "noscript"):
		return TransformSpec{Kind: TransformNoscriptToDiv}, true
	case s == "img", strings.Contains(s, "figure img"), strings.Contains(s, "img"),
		strings.Contains(s, "lazy"), strings.Contains(s, "original"), strings.Contains(s, "zoom"):
		if strings.Contains(s, "original") {
			return MoveAttr("data-original", "src"), true
		}
		return MoveAttr("data-src", "src"), true
	case strings.Contains(s, "source"):
		return MoveAttr("data-srcset", "srcset"), true
	case strings.Contains(s, "video"):
		return MoveAttr("data-src", "src"), true
	}
	return TransformSpec{}, false
}
