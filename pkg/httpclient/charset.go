package httpclient

import (
	"strings"

	"github.com/gogs/chardet"
	"golang.org/x/text/encoding/htmlindex"
)

// DecodeBody は、レスポンスボディを文字列へデコードします。
//
// 1. Content-Type の charset パラメータが既知の文字コードであればそれを使う
// 2. 無ければ統計的な文字コード判定を行う
// 3. どちらも使えなければ UTF-8 として扱い、不正なバイト列は置換文字にする
func DecodeBody(body []byte, contentType string) string {
	if label := CharsetFromContentType(contentType); label != "" {
		if text, ok := decodeWith(label, body); ok {
			return text
		}
	}

	if label := detectCharset(body); label != "" {
		if text, ok := decodeWith(label, body); ok {
			return text
		}
	}

	return strings.ToValidUTF8(string(body), "�")
}

// CharsetFromContentType は、Content-Type ヘッダーから charset の値を取り出します。
// 値は引用符を除去し、小文字にして返します。
func CharsetFromContentType(contentType string) string {
	for _, part := range strings.Split(contentType, ";") {
		part = strings.TrimSpace(part)
		name, value, found := strings.Cut(part, "=")
		if !found || !strings.EqualFold(strings.TrimSpace(name), "charset") {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		return strings.ToLower(value)
	}
	return ""
}

func detectCharset(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	result, err := chardet.NewTextDetector().DetectBest(body)
	if err != nil || result == nil {
		return ""
	}
	return strings.ToLower(result.Charset)
}

func decodeWith(label string, body []byte) (string, bool) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return "", false
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", false
	}
	return string(decoded), true
}
