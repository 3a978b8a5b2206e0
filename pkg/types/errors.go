package types

import (
	"errors"
	"fmt"
)

// ErrorCode は、解析処理で発生したエラーの分類です。
type ErrorCode int

const (
	ErrInvalidURL ErrorCode = iota + 1
	ErrFetch
	ErrTimeout
	ErrSSRF
	ErrExtract
	ErrContext
	ErrInternal
)

// String はエラーコードの表示名を返します。
func (c ErrorCode) String() string {
	switch c {
	case ErrInvalidURL:
		return "invalid URL"
	case ErrFetch:
		return "fetch error"
	case ErrTimeout:
		return "timeout"
	case ErrSSRF:
		return "SSRF blocked"
	case ErrExtract:
		return "extraction error"
	case ErrContext:
		return "context cancelled"
	case ErrInternal:
		return "internal error"
	default:
		return "unknown error"
	}
}

// ParseError は、取得・抽出パイプラインが返す分類済みのエラーです。
// Op は失敗した操作名 (Parse, Fetch など)、URL は対象のURLです。
type ParseError struct {
	Code ErrorCode
	URL  string
	Op   string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("reader: %s %s: %s", e.Op, e.URL, e.Code)
	}
	return fmt.Sprintf("reader: %s %s: %s: %v", e.Op, e.URL, e.Code, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NewParseError は ParseError を生成します。
func NewParseError(code ErrorCode, op, url string, err error) *ParseError {
	return &ParseError{Code: code, URL: url, Op: op, Err: err}
}

// CodeOf は、エラーチェーン中の ParseError のコードを返します。
// ParseError が含まれていない場合は 0 を返します。
func CodeOf(err error) ErrorCode {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return 0
}

// IsCode は、エラーが指定したコードの ParseError かどうかを判定します。
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
