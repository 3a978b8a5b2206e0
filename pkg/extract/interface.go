package extract

import (
	"github.com/PuerkitoBio/goquery"
)

// ----------------------------------------------------------------------
// 依存性の定義 (DIP)
// ----------------------------------------------------------------------

// Finder は、CSSセレクタで子孫要素を検索する機能のインターフェースを定義します。
// Extractor は、この抽象に依存します。*dom.SelectorCache はこのインターフェースを満たします。
type Finder interface {
	Find(s *goquery.Selection, css string) *goquery.Selection
}
