package httpclient

import (
	"context"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPrivateAddr(t *testing.T) {
	tests := []struct {
		addr    string
		private bool
	}{
		{"10.0.0.1", true},
		{"172.16.5.4", true},
		{"172.32.0.1", false},
		{"192.168.1.1", true},
		{"127.0.0.1", true},
		{"169.254.169.254", true},
		{"0.0.0.0", true},
		{"::1", true},
		{"fd00::1", true},
		{"fe80::1", true},
		{"::ffff:127.0.0.1", true},
		{"8.8.8.8", false},
		{"2001:4860:4860::8888", false},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.private, IsPrivateAddr(netip.MustParseAddr(tt.addr)))
		})
	}

	assert.True(t, IsPrivateAddr(netip.Addr{}))
}

func TestCheckHost(t *testing.T) {
	ctx := context.Background()

	t.Run("IPリテラル", func(t *testing.T) {
		err := checkHost(ctx, publicResolver, "127.0.0.1")
		var blocked *BlockedError
		require.ErrorAs(t, err, &blocked)
		assert.Equal(t, "127.0.0.1", blocked.Addr.String())

		assert.NoError(t, checkHost(ctx, publicResolver, "1.1.1.1"))
	})

	t.Run("名前解決の結果で判定する", func(t *testing.T) {
		err := checkHost(ctx, stubResolver{addr: "192.168.0.10"}, "router.example")
		var blocked *BlockedError
		require.ErrorAs(t, err, &blocked)
		assert.Equal(t, "router.example", blocked.Host)
		assert.Contains(t, blocked.Error(), "router.example")

		assert.NoError(t, checkHost(ctx, publicResolver, "example.com"))
	})
}
