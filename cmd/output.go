package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// writeJSON は v を JSON として w に書き出します。compact が false の場合はインデントします。
func writeJSON(w io.Writer, v any, compact bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if !compact {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("JSONの書き出しに失敗しました: %w", err)
	}
	return nil
}

// openOutput は、path が空なら標準出力を、そうでなければ作成したファイルを返します。
// 返される close 関数は必ず呼び出してください。
func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("出力ファイルの作成に失敗しました: %w", err)
	}
	return f, f.Close, nil
}

// readSource は、path のファイル ("-" の場合は標準入力) を文字列として読み込みます。
func readSource(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("標準入力の読み取りエラー: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("HTMLファイルの読み込みに失敗しました: %w", err)
	}
	return string(b), nil
}

// readLines は、r から空でない行を読み込みます。
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("標準入力の読み取りエラー: %w", err)
	}
	return lines, nil
}
