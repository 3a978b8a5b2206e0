package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/shouni/go-web-reader/pkg/client"
	"github.com/shouni/go-web-reader/pkg/custom"
	"github.com/shouni/go-web-reader/pkg/format"
	"github.com/shouni/go-web-reader/pkg/retry"
)

// Config は --config で渡す YAML ファイルの内容です。
type Config struct {
	Timeout              time.Duration     `yaml:"timeout"`
	UserAgent            string            `yaml:"user_agent"`
	AllowPrivateNetworks bool              `yaml:"allow_private_networks"`
	ContentType          string            `yaml:"content_type"`
	Headers              map[string]string `yaml:"headers"`
	// Extractors は、組み込みのルールに上書きマージする抽出ルールファイル (YAML/JSON) のパスです。
	Extractors  string       `yaml:"extractors"`
	Retry       retry.Config `yaml:"retry"`
	Concurrency int          `yaml:"concurrency"`
	FollowNext  bool         `yaml:"follow_next"`
}

// DefaultConfig は、設定ファイルもフラグも無い場合の値を返します。
func DefaultConfig() Config {
	return Config{
		Timeout:     client.DefaultHTTPTimeout,
		UserAgent:   client.DefaultUserAgent,
		ContentType: string(format.HTML),
		Retry:       retry.DefaultConfig(),
	}
}

// LoadConfig は、path の YAML を DefaultConfig の上に読み込みます。path が空ならデフォルト値を返します。
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("設定ファイルの読み込みに失敗しました: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("設定ファイルのパースに失敗しました (%s): %w", path, err)
	}
	return cfg, nil
}

// applyFlags は、コマンドラインで明示的に指定されたフラグだけを設定に反映します。
func (c *Config) applyFlags(fs *pflag.FlagSet, f AppFlags) {
	if fs.Changed("timeout") {
		c.Timeout = time.Duration(f.TimeoutSec) * time.Second
	}
	if fs.Changed("max-retries") {
		c.Retry.MaxRetries = uint64(f.MaxRetries)
	}
	if fs.Changed("user-agent") {
		c.UserAgent = f.UserAgent
	}
	if fs.Changed("allow-private-networks") {
		c.AllowPrivateNetworks = f.AllowPrivateNetworks
	}
	for k, v := range f.Headers {
		if c.Headers == nil {
			c.Headers = make(map[string]string, len(f.Headers))
		}
		c.Headers[k] = v
	}
}

// Registry は、組み込みのルールに Extractors のルールをマージしたレジストリを返します。
func (c Config) Registry() (*custom.Registry, error) {
	builtin, err := custom.Builtin()
	if err != nil {
		return nil, fmt.Errorf("組み込み抽出ルールの読み込みに失敗しました: %w", err)
	}
	if c.Extractors == "" {
		return builtin, nil
	}
	extra, err := custom.LoadFile(c.Extractors)
	if err != nil {
		return nil, fmt.Errorf("抽出ルールファイルの読み込みに失敗しました: %w", err)
	}
	return builtin.Merge(extra), nil
}

// ClientOptions は、設定から client.New に渡すオプションを組み立てます。
func (c Config) ClientOptions(registry *custom.Registry, logger zerolog.Logger) []client.Option {
	opts := []client.Option{
		client.WithTimeout(c.Timeout),
		client.WithUserAgent(c.UserAgent),
		client.WithAllowPrivateNetworks(c.AllowPrivateNetworks),
		client.WithContentType(format.ParseContentType(c.ContentType)),
		client.WithHeaders(c.Headers),
		client.WithFollowNext(c.FollowNext),
		client.WithLogger(logger),
	}
	if registry != nil {
		opts = append(opts, client.WithRegistry(registry))
	}
	return opts
}
