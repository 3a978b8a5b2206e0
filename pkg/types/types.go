package types

// URLResult は、特定のURLから抽出された結果、またはその処理中に発生したエラーを保持します。
// これは、Scraper の出力として利用されます。
type URLResult struct {
	URL    string       // 処理対象のURL
	Result *ParseResult // 抽出結果 (エラー時は nil)
	Error  error        // 処理中に発生したエラー
}

// OK は、結果が正常に得られたかどうかを返します。
func (r URLResult) OK() bool {
	return r.Error == nil && r.Result != nil
}
