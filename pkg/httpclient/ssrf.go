package httpclient

import (
	"context"
	"fmt"
	"net"
	"net/netip"
)

// Resolver は、ホスト名をIPアドレスへ解決するインターフェースです。
// *net.Resolver はこのインターフェースを満たします。
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// privatePrefixes は、取得を拒否するアドレス範囲です。
var privatePrefixes = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

// BlockedError は、プライベートアドレスへの取得を拒否したことを示します。
type BlockedError struct {
	Host string
	Addr netip.Addr
}

func (e *BlockedError) Error() string {
	if e.Host == e.Addr.String() {
		return fmt.Sprintf("プライベートアドレスへのアクセスは許可されていません: %s", e.Addr)
	}
	return fmt.Sprintf("プライベートアドレスへのアクセスは許可されていません: %s (%s)", e.Host, e.Addr)
}

// IsPrivateAddr は、アドレスがプライベート・ループバック・リンクローカルの範囲にあるかを返します。
// IPv4射影IPv6アドレスはIPv4として判定します。
func IsPrivateAddr(addr netip.Addr) bool {
	addr = addr.Unmap().WithZone("")
	if !addr.IsValid() || addr.IsUnspecified() {
		return true
	}
	for _, p := range privatePrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// checkHost は、ホストがプライベートアドレスを指していないことを確認します。
// IPリテラルはそのまま判定し、ホスト名はDNSで解決したすべてのアドレスを判定します。
func checkHost(ctx context.Context, resolver Resolver, host string) error {
	if addr, err := netip.ParseAddr(host); err == nil {
		if IsPrivateAddr(addr) {
			return &BlockedError{Host: host, Addr: addr}
		}
		return nil
	}

	addrs, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return fmt.Errorf("ホスト名 %s の名前解決に失敗しました: %w", host, err)
	}
	if len(addrs) == 0 {
		return fmt.Errorf("ホスト名 %s のアドレスが見つかりませんでした", host)
	}
	for _, ip := range addrs {
		addr, ok := netip.AddrFromSlice(ip.IP)
		if !ok {
			continue
		}
		if IsPrivateAddr(addr) {
			return &BlockedError{Host: host, Addr: addr.Unmap()}
		}
	}
	return nil
}
