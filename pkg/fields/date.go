package fields

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// looseDateLayouts は、時刻もタイムゾーンも持たない日付の形式です。UTC の0時として扱います。
var looseDateLayouts = []string{
	"Jan 2, 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"2 January 2006",
}

// zoneAbbreviations は、タイムゾーンの略称とUTCからのオフセットです。
// 同じ略称が複数の地域で使われているため、後の行が前の行を上書きします。
var zoneAbbreviations = [][2]string{
	{"UTC", "+0000"},
	{"GMT", "+0000"},
	{"EST", "-0500"},
	{"EDT", "-0400"},
	{"CST", "-0600"},
	{"CDT", "-0500"},
	{"MST", "-0700"},
	{"MDT", "-0600"},
	{"PST", "-0800"},
	{"PDT", "-0700"},
	{"BST", "+0100"},
	{"IST", "+0100"},
	{"CET", "+0100"},
	{"CEST", "+0200"},
	{"EET", "+0200"},
	{"EEST", "+0300"},
	{"MSK", "+0300"},
	{"IST", "+0530"},
	{"CST", "+0800"},
	{"HKT", "+0800"},
	{"SGT", "+0800"},
	{"JST", "+0900"},
	{"KST", "+0900"},
	{"AEST", "+1000"},
	{"AEDT", "+1100"},
	{"NZST", "+1200"},
}

var zoneOffsets = func() map[string]string {
	m := make(map[string]string, len(zoneAbbreviations))
	for _, z := range zoneAbbreviations {
		m[z[0]] = z[1]
	}
	return m
}()

// zonedLayouts は、略称を数値オフセットに置き換えた後に試す形式です。
var zonedLayouts = []string{
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04 -0700",
	"2006-01-02T15:04:05 -0700",
	"Mon, 02 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Jan 2, 2006 15:04 -0700",
	"Jan 2, 2006 3:04 PM -0700",
	"January 2, 2006 15:04 -0700",
	"January 2, 2006 3:04 PM -0700",
	"January 2, 2006 3:04pm -0700",
}

// ParseDate は、日付文字列を UTC の時刻に変換します。
//
//  1. RFC3339
//  2. 時刻の無い日付 (UTC の0時)
//  3. 末尾のタイムゾーン略称を数値オフセットに置き換えた形式
//  4. dateparse による自然な表記の解釈
func ParseDate(s string) (time.Time, bool) {
	return ParseDateIn(s, "", "")
}

// ParseDateIn は、ParseDate に加えて、Go のレイアウトとタイムゾーン名を指定して解釈します。
// layout は他の形式より先に試し、tz はオフセットを持たない表記の解釈に使います。
func ParseDateIn(s, layout, tz string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	loc := time.UTC
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}

	if layout != "" {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), true
		}
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}

	for _, l := range looseDateLayouts {
		if t, err := time.ParseInLocation(l, s, loc); err == nil {
			return t.UTC(), true
		}
	}

	if replaced, ok := replaceZoneAbbreviation(s); ok {
		for _, l := range zonedLayouts {
			if t, err := time.Parse(l, replaced); err == nil {
				return t.UTC(), true
			}
		}
		if t, err := dateparse.ParseIn(replaced, loc); err == nil {
			return t.UTC(), true
		}
	}

	t, err := dateparse.ParseIn(s, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// replaceZoneAbbreviation は、末尾の語がタイムゾーン略称であれば数値オフセットに置き換えます。
func replaceZoneAbbreviation(s string) (string, bool) {
	i := strings.LastIndexByte(s, ' ')
	if i < 0 {
		return s, false
	}
	offset, ok := zoneOffsets[strings.ToUpper(s[i+1:])]
	if !ok {
		return s, false
	}
	return s[:i+1] + offset, true
}
