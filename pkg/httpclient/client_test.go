package httpclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-web-reader/pkg/types"
)

type MockHTTPClient struct {
	mock.Mock
}

func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	// args.Get(0) が interface{}(nil) の場合は型アサーションが失敗するため、
	// モック側では型付きの nil (*http.Response) を返すこと。
	return args.Get(0).(*http.Response), args.Error(1)
}

// stubResolver は、すべてのホスト名を固定のアドレスへ解決します。
type stubResolver struct {
	addr string
	err  error
}

func (r stubResolver) LookupIPAddr(_ context.Context, _ string) ([]net.IPAddr, error) {
	if r.err != nil {
		return nil, r.err
	}
	return []net.IPAddr{{IP: net.ParseIP(r.addr)}}, nil
}

var publicResolver = stubResolver{addr: "93.184.216.34"}

// dialTo は、宛先に関わらず指定アドレスへ接続する *http.Client を返します。
func dialTo(addr string) *http.Client {
	dialer := &net.Dialer{}
	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, _ string) (net.Conn, error) {
				return dialer.DialContext(ctx, network, addr)
			},
		},
	}
}

func TestNew(t *testing.T) {
	t.Run("default timeout", func(t *testing.T) {
		client := New(0)
		assert.Equal(t, DefaultHTTPTimeout, client.timeout)
		assert.Equal(t, UserAgent, client.userAgent)
	})
	t.Run("custom timeout", func(t *testing.T) {
		client := New(5 * time.Second)
		assert.Equal(t, 5*time.Second, client.timeout)
	})
	t.Run("with HTTP client option", func(t *testing.T) {
		mockClient := new(MockHTTPClient)
		client := New(10*time.Second, WithHTTPClient(mockClient))
		assert.Equal(t, mockClient, client.httpClient)
	})
	t.Run("*http.Client は複製される", func(t *testing.T) {
		hc := &http.Client{}
		client := New(0, WithHTTPClient(hc))
		assert.NotSame(t, hc, client.httpClient)
		assert.Nil(t, hc.CheckRedirect)
	})
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		rawURL  string
		wantErr bool
	}{
		{"https", "https://example.com/a", false},
		{"http", "http://example.com", false},
		{"空文字列", "", true},
		{"空白のみ", "   ", true},
		{"スキームなし", "example.com/a", true},
		{"ftp", "ftp://example.com/file", true},
		{"ホストなし", "http:///path", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateURL(tt.rawURL)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFetch_InvalidURL(t *testing.T) {
	mockClient := new(MockHTTPClient)
	client := New(0, WithHTTPClient(mockClient))

	_, err := client.Fetch(context.Background(), "not a url", FetchOptions{})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrInvalidURL))
	mockClient.AssertNotCalled(t, "Do", mock.Anything)
}

func TestFetch_Loopback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=UTF-8")
		_, _ = io.WriteString(w, "<html><body>ok</body></html>")
	}))
	defer server.Close()

	client := New(5 * time.Second)

	t.Run("既定ではブロックされる", func(t *testing.T) {
		_, err := client.Fetch(context.Background(), server.URL, FetchOptions{})
		require.Error(t, err)
		assert.True(t, types.IsCode(err, types.ErrSSRF))

		var blocked *BlockedError
		assert.ErrorAs(t, err, &blocked)
	})

	t.Run("許可すれば取得できる", func(t *testing.T) {
		res, err := client.Fetch(context.Background(), server.URL, FetchOptions{AllowPrivateNetworks: true})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.Status)
		assert.Equal(t, "text/html; charset=utf-8", res.ContentType)
		assert.Equal(t, "<html><body>ok</body></html>", res.Text())
		assert.Equal(t, server.URL, res.FinalURL)
	})
}

func TestFetch_ResolvedPrivateAddress(t *testing.T) {
	mockClient := new(MockHTTPClient)
	client := New(0, WithHTTPClient(mockClient), WithResolver(stubResolver{addr: "10.1.2.3"}))

	_, err := client.Fetch(context.Background(), "https://internal.example/", FetchOptions{})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrSSRF))
	mockClient.AssertNotCalled(t, "Do", mock.Anything)
}

func TestFetch_ResolveFailure(t *testing.T) {
	client := New(0, WithResolver(stubResolver{err: errors.New("no such host")}))

	_, err := client.Fetch(context.Background(), "https://missing.example/", FetchOptions{})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrFetch))
}

func TestFetch_RedirectToPrivateIsBlocked(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/start" {
			http.Redirect(w, r, server.URL+"/final", http.StatusFound)
			return
		}
		_, _ = io.WriteString(w, "secret")
	}))
	defer server.Close()

	addr := strings.TrimPrefix(server.URL, "http://")
	client := New(5*time.Second, WithHTTPClient(dialTo(addr)), WithResolver(publicResolver))

	_, err := client.Fetch(context.Background(), "http://public.example/start", FetchOptions{})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrSSRF))
}

func TestFetch_RedirectFollowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/start" {
			http.Redirect(w, r, "/final", http.StatusMovedPermanently)
			return
		}
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "ja", r.Header.Get("Accept-Language"))
		_, _ = io.WriteString(w, "final")
	}))
	defer server.Close()

	addr := strings.TrimPrefix(server.URL, "http://")
	client := New(5*time.Second, WithHTTPClient(dialTo(addr)), WithResolver(publicResolver))

	res, err := client.Fetch(context.Background(), "http://public.example/start", FetchOptions{
		Headers: map[string]string{"Accept-Language": "ja"},
	})
	require.NoError(t, err)
	assert.Equal(t, "http://public.example/start", res.URL)
	assert.Equal(t, "http://public.example/final", res.FinalURL)
	assert.Equal(t, []byte("final"), res.Body)
}

func TestFetch_Status(t *testing.T) {
	newResponse := func(status int) *http.Response {
		return &http.Response{
			StatusCode: status,
			Header:     http.Header{"Content-Type": []string{"text/html"}},
			Body:       io.NopCloser(bytes.NewReader([]byte("<p>not found</p>"))),
		}
	}

	t.Run("200以外はエラー", func(t *testing.T) {
		mockClient := new(MockHTTPClient)
		mockClient.On("Do", mock.Anything).Return(newResponse(http.StatusNotFound), nil)
		client := New(0, WithHTTPClient(mockClient), WithResolver(publicResolver))

		_, err := client.Fetch(context.Background(), "https://example.com/missing", FetchOptions{})
		require.Error(t, err)
		assert.True(t, types.IsCode(err, types.ErrFetch))

		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusNotFound, se.StatusCode)
		assert.False(t, IsRetryableStatus(err))
		mockClient.AssertExpectations(t)
	})

	t.Run("ParseNon200 なら本文を返す", func(t *testing.T) {
		mockClient := new(MockHTTPClient)
		mockClient.On("Do", mock.Anything).Return(newResponse(http.StatusNotFound), nil)
		client := New(0, WithHTTPClient(mockClient), WithResolver(publicResolver))

		res, err := client.Fetch(context.Background(), "https://example.com/missing", FetchOptions{ParseNon200: true})
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, res.Status)
		assert.Equal(t, "<p>not found</p>", string(res.Body))
	})
}

func TestFetch_NetworkError(t *testing.T) {
	mockClient := new(MockHTTPClient)
	var resp *http.Response
	mockClient.On("Do", mock.Anything).Return(resp, errors.New("network error"))
	client := New(0, WithHTTPClient(mockClient), WithResolver(publicResolver))

	_, err := client.Fetch(context.Background(), "https://example.com", FetchOptions{})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrFetch))
	mockClient.AssertExpectations(t)
}

func TestFetch_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mockClient := new(MockHTTPClient)
	var resp *http.Response
	mockClient.On("Do", mock.Anything).Return(resp, context.Canceled)
	client := New(0, WithHTTPClient(mockClient), WithResolver(publicResolver))

	_, err := client.Fetch(ctx, "https://example.com", FetchOptions{})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrContext))
}

func TestFetch_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := New(50 * time.Millisecond)
	_, err := client.Fetch(context.Background(), server.URL, FetchOptions{AllowPrivateNetworks: true})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrTimeout))
}

func TestFetch_BodyTooLarge(t *testing.T) {
	t.Run("Content-Length が上限を超える", func(t *testing.T) {
		mockClient := new(MockHTTPClient)
		mockClient.On("Do", mock.Anything).Return(&http.Response{
			StatusCode:    http.StatusOK,
			ContentLength: MaxBodySize + 1,
			Body:          io.NopCloser(bytes.NewReader(nil)),
		}, nil)
		client := New(0, WithHTTPClient(mockClient), WithResolver(publicResolver))

		_, err := client.Fetch(context.Background(), "https://example.com/big", FetchOptions{})
		require.Error(t, err)
		assert.True(t, types.IsCode(err, types.ErrFetch))
	})

	t.Run("実際の本文が上限を超える", func(t *testing.T) {
		mockClient := new(MockHTTPClient)
		mockClient.On("Do", mock.Anything).Return(&http.Response{
			StatusCode:    http.StatusOK,
			ContentLength: -1,
			Body:          io.NopCloser(bytes.NewReader(make([]byte, MaxBodySize+10))),
		}, nil)
		client := New(0, WithHTTPClient(mockClient), WithResolver(publicResolver))

		_, err := client.Fetch(context.Background(), "https://example.com/big", FetchOptions{})
		require.Error(t, err)
		assert.True(t, types.IsCode(err, types.ErrFetch))
	})
}

func TestFetchBytes(t *testing.T) {
	mockClient := new(MockHTTPClient)
	mockClient.On("Do", mock.Anything).Return(&http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewReader([]byte(`<rss></rss>`))),
	}, nil)
	client := New(0, WithHTTPClient(mockClient), WithResolver(publicResolver))

	body, err := client.FetchBytes(context.Background(), "https://example.com/feed.xml")
	require.NoError(t, err)
	assert.Equal(t, []byte(`<rss></rss>`), body)
}

func TestIsRetryableStatus(t *testing.T) {
	assert.True(t, IsRetryableStatus(&StatusError{StatusCode: 503}))
	assert.True(t, IsRetryableStatus(types.NewParseError(types.ErrFetch, "Fetch", "u", &StatusError{StatusCode: 429})))
	assert.False(t, IsRetryableStatus(&StatusError{StatusCode: 404}))
	assert.False(t, IsRetryableStatus(errors.New("x")))
}
