// Package custom は、ドメインごとのカスタム抽出ルールとそのレジストリを提供します。
//
// ルールは JSON (組み込みコーパス) または YAML (利用者のコーパス) で記述し、
// 構築後のレジストリは変更されないため、複数のゴルーチンから同時に参照できます。
package custom

import (
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// SelectorSpec は、1つのセレクタ指定です。
// Attr が空の場合は要素のテキストを、そうでなければ属性値を取り出します。
//
// JSON/YAML では "css" または ["css", "attr"] と書きます。要素が1つだけの配列はテキスト指定です。
type SelectorSpec struct {
	CSS  string
	Attr string
}

// IsAttr は、属性値を取り出す指定かを返します。
func (s SelectorSpec) IsAttr() bool { return s.Attr != "" }

func (s *SelectorSpec) fromParts(parts []string) {
	s.CSS, s.Attr = "", ""
	if len(parts) > 0 {
		s.CSS = parts[0]
	}
	if len(parts) > 1 {
		s.Attr = parts[1]
	}
}

func (s *SelectorSpec) UnmarshalJSON(data []byte) error {
	var css string
	if err := json.Unmarshal(data, &css); err == nil {
		s.CSS, s.Attr = css, ""
		return nil
	}
	var parts []string
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("セレクタは文字列または文字列の配列である必要があります: %w", err)
	}
	s.fromParts(parts)
	return nil
}

func (s SelectorSpec) MarshalJSON() ([]byte, error) {
	if s.Attr == "" {
		return json.Marshal(s.CSS)
	}
	return json.Marshal([]string{s.CSS, s.Attr})
}

func (s *SelectorSpec) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		s.CSS, s.Attr = value.Value, ""
		return nil
	case yaml.SequenceNode:
		var parts []string
		if err := value.Decode(&parts); err != nil {
			return fmt.Errorf("セレクタ配列のデコードに失敗しました: %w", err)
		}
		s.fromParts(parts)
		return nil
	}
	return fmt.Errorf("%d行目: セレクタは文字列または文字列の配列である必要があります", value.Line)
}

// TransformKind は、変換の種類です。
type TransformKind string

const (
	TransformTag           TransformKind = "tag"
	TransformNoop          TransformKind = "noop"
	TransformNoscriptToDiv TransformKind = "noscript_to_div"
	TransformUnwrap        TransformKind = "unwrap"
	TransformMoveAttr      TransformKind = "move_attr"
	TransformSetAttr       TransformKind = "set_attr"
)

func (k TransformKind) valid() bool {
	switch k {
	case TransformTag, TransformNoop, TransformNoscriptToDiv, TransformUnwrap, TransformMoveAttr, TransformSetAttr:
		return true
	}
	return false
}

// TransformSpec は、本文の直列化時に一致した要素へ適用する変換です。
//
//   - Tag: 要素名を Value に変更
//   - MoveAttr: From 属性の値を To 属性へコピー (既存の値は上書き)
//   - SetAttr: Name 属性を Value に設定
//   - Unwrap: 要素を取り除き子だけを残す
//   - NoscriptToDiv: <noscript> を <div> として出力
//   - Noop: 何もしない (読み込み時に推論の対象になります)
type TransformSpec struct {
	Kind  TransformKind `json:"type" yaml:"type"`
	Value string        `json:"value,omitempty" yaml:"value,omitempty"`
	From  string        `json:"from,omitempty" yaml:"from,omitempty"`
	To    string        `json:"to,omitempty" yaml:"to,omitempty"`
	Name  string        `json:"name,omitempty" yaml:"name,omitempty"`
}

// Tag は、要素名を変更する変換を返します。
func Tag(value string) TransformSpec { return TransformSpec{Kind: TransformTag, Value: value} }

// MoveAttr は、属性をコピーする変換を返します。
func MoveAttr(from, to string) TransformSpec {
	return TransformSpec{Kind: TransformMoveAttr, From: from, To: to}
}

// SetAttr は、属性を固定値に設定する変換を返します。
func SetAttr(name, value string) TransformSpec {
	return TransformSpec{Kind: TransformSetAttr, Name: name, Value: value}
}

// transformFields は、デコード時の再帰を避けるための別名です。
type transformFields TransformSpec

func (t *TransformSpec) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = TransformSpec{Kind: TransformNoop}
		return nil
	}
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		*t = Tag(tag)
		return nil
	}
	var f transformFields
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("変換指定のデコードに失敗しました: %w", err)
	}
	*t = TransformSpec(f)
	return t.validate()
}

func (t *TransformSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		if value.Tag == "!!null" {
			*t = TransformSpec{Kind: TransformNoop}
			return nil
		}
		*t = Tag(value.Value)
		return nil
	}
	var f transformFields
	if err := value.Decode(&f); err != nil {
		return fmt.Errorf("%d行目: 変換指定のデコードに失敗しました: %w", value.Line, err)
	}
	*t = TransformSpec(f)
	return t.validate()
}

func (t *TransformSpec) validate() error {
	if t.Kind == "" {
		return errors.New("変換指定に type がありません")
	}
	if !t.Kind.valid() {
		return fmt.Errorf("不明な変換の種類です: %q", t.Kind)
	}
	switch t.Kind {
	case TransformTag:
		if t.Value == "" {
			return errors.New("tag 変換には value が必要です")
		}
	case TransformMoveAttr:
		if t.From == "" || t.To == "" {
			return errors.New("move_attr 変換には from と to が必要です")
		}
	case TransformSetAttr:
		if t.Name == "" {
			return errors.New("set_attr 変換には name が必要です")
		}
	}
	return nil
}

// FieldExtractor は、1つのフィールドを取り出す設定です。
type FieldExtractor struct {
	Selectors      []SelectorSpec `json:"selectors" yaml:"selectors"`
	AllowMultiple  bool           `json:"allow_multiple,omitempty" yaml:"allow_multiple,omitempty"`
	DefaultCleaner bool           `json:"default_cleaner,omitempty" yaml:"default_cleaner,omitempty"`
	// Format は日付の Go レイアウト、Timezone は IANA のタイムゾーン名です。
	Format   string `json:"format,omitempty" yaml:"format,omitempty"`
	Timezone string `json:"timezone,omitempty" yaml:"timezone,omitempty"`
}

// ContentExtractor は、本文を取り出す設定です。
type ContentExtractor struct {
	FieldExtractor `yaml:",inline"`
	// Clean は、本文から取り除く要素のセレクタです。
	Clean []string `json:"clean,omitempty" yaml:"clean,omitempty"`
	// Transforms は、セレクタごとの変換です。
	Transforms map[string]TransformSpec `json:"transforms,omitempty" yaml:"transforms,omitempty"`
}

// CustomExtractor は、1つのドメイン (と別名ドメイン) 向けの抽出ルールです。
type CustomExtractor struct {
	Domain           string                     `json:"domain" yaml:"domain"`
	SupportedDomains []string                   `json:"supported_domains,omitempty" yaml:"supported_domains,omitempty"`
	Title            *FieldExtractor            `json:"title,omitempty" yaml:"title,omitempty"`
	Author           *FieldExtractor            `json:"author,omitempty" yaml:"author,omitempty"`
	Content          *ContentExtractor          `json:"content,omitempty" yaml:"content,omitempty"`
	DatePublished    *FieldExtractor            `json:"date_published,omitempty" yaml:"date_published,omitempty"`
	LeadImageURL     *FieldExtractor            `json:"lead_image_url,omitempty" yaml:"lead_image_url,omitempty"`
	Dek              *FieldExtractor            `json:"dek,omitempty" yaml:"dek,omitempty"`
	NextPageURL      *FieldExtractor            `json:"next_page_url,omitempty" yaml:"next_page_url,omitempty"`
	Excerpt          *FieldExtractor            `json:"excerpt,omitempty" yaml:"excerpt,omitempty"`
	Extend           map[string]*FieldExtractor `json:"extend,omitempty" yaml:"extend,omitempty"`
}

// Clone は、共有部分を持たない複製を返します。
func (c *CustomExtractor) Clone() *CustomExtractor {
	if c == nil {
		return nil
	}
	out := *c
	out.SupportedDomains = append([]string(nil), c.SupportedDomains...)
	out.Title = c.Title.clone()
	out.Author = c.Author.clone()
	out.DatePublished = c.DatePublished.clone()
	out.LeadImageURL = c.LeadImageURL.clone()
	out.Dek = c.Dek.clone()
	out.NextPageURL = c.NextPageURL.clone()
	out.Excerpt = c.Excerpt.clone()
	if c.Content != nil {
		content := *c.Content
		content.FieldExtractor = *c.Content.FieldExtractor.clone()
		content.Clean = append([]string(nil), c.Content.Clean...)
		if c.Content.Transforms != nil {
			content.Transforms = make(map[string]TransformSpec, len(c.Content.Transforms))
			for k, v := range c.Content.Transforms {
				content.Transforms[k] = v
			}
		}
		out.Content = &content
	}
	if c.Extend != nil {
		out.Extend = make(map[string]*FieldExtractor, len(c.Extend))
		for k, v := range c.Extend {
			out.Extend[k] = v.clone()
		}
	}
	return &out
}

func (f *FieldExtractor) clone() *FieldExtractor {
	if f == nil {
		return nil
	}
	out := *f
	out.Selectors = append([]SelectorSpec(nil), f.Selectors...)
	return &out
}

// Domains は、主ドメインと別名ドメインを返します。
func (c *CustomExtractor) Domains() []string {
	return append([]string{c.Domain}, c.SupportedDomains...)
}

// fields は、CSS を持つすべてのフィールド設定を返します。
func (c *CustomExtractor) fields() []*FieldExtractor {
	out := []*FieldExtractor{c.Title, c.Author, c.DatePublished, c.LeadImageURL, c.Dek, c.NextPageURL, c.Excerpt}
	if c.Content != nil {
		out = append(out, &c.Content.FieldExtractor)
	}
	for _, f := range c.Extend {
		out = append(out, f)
	}
	return out
}
