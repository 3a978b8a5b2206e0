package custom

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed corpus/extractors.json
var builtinCorpus []byte

// Builtin は、組み込みコーパスのレジストリを一度だけ構築して返します。
// 既定のクライアントはこれを共有します。
var Builtin = sync.OnceValues(LoadBuiltin)

// LoadBuiltin は、組み込みコーパスから新しいレジストリを構築します。
func LoadBuiltin() (*Registry, error) {
	reg, err := Load(bytes.NewReader(builtinCorpus))
	if err != nil {
		return nil, fmt.Errorf("組み込み抽出ルールの読み込みに失敗しました: %w", err)
	}
	return reg, nil
}

// Load は、CustomExtractor の JSON 配列を読み込みます。
func Load(r io.Reader) (*Registry, error) {
	var extractors []*CustomExtractor
	if err := json.NewDecoder(r).Decode(&extractors); err != nil {
		return nil, fmt.Errorf("抽出ルールのJSONデコードに失敗しました: %w", err)
	}
	return build(extractors)
}

// LoadYAML は、CustomExtractor の YAML 配列を読み込みます。
func LoadYAML(r io.Reader) (*Registry, error) {
	var extractors []*CustomExtractor
	if err := yaml.NewDecoder(r).Decode(&extractors); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("抽出ルールのYAMLデコードに失敗しました: %w", err)
	}
	return build(extractors)
}

// LoadFile は、拡張子 (.yaml/.yml はYAML、それ以外はJSON) に応じてファイルを読み込みます。
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("抽出ルールファイルのオープンに失敗しました: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(f)
	default:
		return Load(f)
	}
}

func build(extractors []*CustomExtractor) (*Registry, error) {
	for i, ex := range extractors {
		if ex == nil || strings.TrimSpace(ex.Domain) == "" {
			return nil, fmt.Errorf("%d番目の抽出ルールに domain がありません", i)
		}
		InferTransforms(ex)
	}
	return NewRegistry(extractors...), nil
}
