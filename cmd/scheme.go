package cmd

import (
	"fmt"
	"net/url"
	"strings"
)

// ensureScheme は、URLのスキームが存在しない場合に https:// を補完します。
// スキームが http/https 以外の場合や、ホストを含まない場合はエラーを返します。
func ensureScheme(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", fmt.Errorf("URLが空です")
	}

	// 1. スキームがない場合、HTTPSをデフォルトとして付与
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}

	// 2. パースしてスキームとホストを検査
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("URLのパースエラー: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return "", fmt.Errorf("無効なURLスキームです。httpまたはhttpsを指定してください: %s", rawURL)
	}
	if parsedURL.Host == "" {
		return "", fmt.Errorf("URLにホストが含まれていません: %s", rawURL)
	}
	return rawURL, nil
}

// ensureSchemes は、複数のURLに ensureScheme を適用します。空行は読み飛ばします。
func ensureSchemes(rawURLs []string) ([]string, error) {
	urls := make([]string, 0, len(rawURLs))
	for _, raw := range rawURLs {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		u, err := ensureScheme(raw)
		if err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, nil
}
