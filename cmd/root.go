package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"

	"github.com/shouni/go-web-reader/pkg/client"
	"github.com/shouni/go-web-reader/pkg/custom"
)

// --- グローバル定数 ---

const (
	appName           = "web-reader"
	defaultTimeoutSec = 30 // 秒
	defaultMaxRetries = 3  // デフォルトのリトライ回数

	// 全体処理のタイムアウトの下限 (クライアントタイムアウトの2倍がこれより短い場合に使う)
	DefaultOverallTimeout = 20 * time.Second
)

// --- グローバル変数とフラグ構造体 ---

// AppFlags はこのアプリケーション固有の永続フラグを保持
type AppFlags struct {
	TimeoutSec           int               // --timeout タイムアウト
	MaxRetries           int               // --max-retries リトライ回数
	ConfigPath           string            // --config 設定ファイル
	UserAgent            string            // --user-agent
	AllowPrivateNetworks bool              // --allow-private-networks
	Headers              map[string]string // --header key=value
}

var Flags AppFlags // アプリケーション固有フラグにアクセスするためのグローバル変数

// app は PersistentPreRunE で組み立てられ、各サブコマンドから参照されます。
var app struct {
	config   Config
	registry *custom.Registry
	logger   zerolog.Logger
}

// --- 初期化とロジック (clibaseへのコールバックとして利用) ---

// addAppPersistentFlags は、アプリケーション固有の永続フラグをルートコマンドに追加します。
func addAppPersistentFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().IntVar(&Flags.TimeoutSec, "timeout", defaultTimeoutSec, "HTTPリクエストのタイムアウト時間（秒）")
	rootCmd.PersistentFlags().IntVar(&Flags.MaxRetries, "max-retries", defaultMaxRetries, "一時的なエラー時のリトライ最大回数")
	if rootCmd.PersistentFlags().Lookup("config") == nil {
		rootCmd.PersistentFlags().StringVar(&Flags.ConfigPath, "config", "", "YAML形式の設定ファイルのパス")
	}
	rootCmd.PersistentFlags().StringVar(&Flags.UserAgent, "user-agent", client.DefaultUserAgent, "リクエストに使う User-Agent")
	rootCmd.PersistentFlags().BoolVar(&Flags.AllowPrivateNetworks, "allow-private-networks", false, "プライベートアドレスへのアクセスを許可します")
	rootCmd.PersistentFlags().StringToStringVarP(&Flags.Headers, "header", "H", nil, "すべてのリクエストに付けるヘッダー (key=value)")
}

// initAppPreRunE は、clibase共通処理の後に実行される、アプリケーション固有のPersistentPreRunEです。
// NOTE: clibaseの PersistentPreRunE チェーンにより、clibase.Flags.Verbose はこの関数実行前に設定済み
func initAppPreRunE(cmd *cobra.Command, args []string) error {
	app.logger = newLogger(clibase.Flags.Verbose)

	// 1. 設定ファイルを読み込み、明示されたフラグで上書き
	if path, err := cmd.Flags().GetString("config"); err == nil {
		Flags.ConfigPath = path
	}
	cfg, err := LoadConfig(Flags.ConfigPath)
	if err != nil {
		return err
	}
	cfg.applyFlags(cmd.Flags(), Flags)

	// 2. 抽出ルールの準備
	registry, err := cfg.Registry()
	if err != nil {
		return err
	}

	app.config = cfg
	app.registry = registry

	app.logger.Debug().
		Dur("timeout", cfg.Timeout).
		Uint64("max_retries", cfg.Retry.MaxRetries).
		Int("extractors", registry.Len()).
		Bool("allow_private_networks", cfg.AllowPrivateNetworks).
		Msg("設定を読み込みました")
	return nil
}

// newLogger は、標準エラー出力に人間向けの形式で書き出すロガーを作成します。
func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// overallTimeout は、リトライを含めた処理全体のタイムアウトです。クライアントタイムアウトの2倍とします。
func overallTimeout() time.Duration {
	if d := app.config.Timeout * 2; d > DefaultOverallTimeout {
		return d
	}
	return DefaultOverallTimeout
}

// newClient は、現在の設定から抽出クライアントを作成します。
func newClient(extra ...client.Option) *client.Client {
	opts := append(app.config.ClientOptions(app.registry, app.logger), extra...)
	return client.New(opts...)
}

// --- エントリポイント ---

// Execute は、rootCmd を実行するメイン関数です。clibaseのExecuteを使用する。
func Execute() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "内部エラーが発生しました: %v\n", r)
			os.Exit(1)
		}
	}()

	// clibase.Execute の中でエラー時の os.Exit(1) が処理されます
	clibase.Execute(
		appName,
		addAppPersistentFlags,
		initAppPreRunE,
		extractCmd,
		scraperCmd,
		feedCmd,
		metaCmd,
	)
}
