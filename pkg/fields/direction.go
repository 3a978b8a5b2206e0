package fields

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// rtlThreshold は、右から左へ書く文字の割合がこの値以上であれば rtl と判定する閾値です。
const rtlThreshold = 0.30

// rtlRanges は、ヘブライ文字とアラビア文字の範囲です。
var rtlRanges = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x0590, Hi: 0x05FF, Stride: 1},
		{Lo: 0x0600, Hi: 0x06FF, Stride: 1},
		{Lo: 0x0750, Hi: 0x077F, Stride: 1},
		{Lo: 0x08A0, Hi: 0x08FF, Stride: 1},
		{Lo: 0xFB1D, Hi: 0xFB4F, Stride: 1},
		{Lo: 0xFB50, Hi: 0xFDFF, Stride: 1},
		{Lo: 0xFE70, Hi: 0xFEFF, Stride: 1},
	},
}

// Direction は、文章の向き ("rtl" または "ltr") を返します。
// html、body の dir 属性を優先し、無ければ plain に含まれる文字の割合で判定します。
func (e *Extractor) Direction(doc *goquery.Document, plain string) string {
	for _, css := range []string{"html", "body"} {
		dir := strings.ToLower(e.FirstAttr(doc, "dir", css))
		if dir == "rtl" || dir == "ltr" {
			return dir
		}
	}
	return TextDirection(plain)
}

// TextDirection は、文字の割合だけで文章の向きを判定します。
func TextDirection(plain string) string {
	letters, rtl := 0, 0
	for _, r := range plain {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.Is(rtlRanges, r) {
			rtl++
		}
	}
	if letters > 0 && float64(rtl)/float64(letters) >= rtlThreshold {
		return "rtl"
	}
	return "ltr"
}
