package services

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsForbiddenAddress(t *testing.T) {
	cases := []struct {
		addr      string
		forbidden bool
	}{
		{"127.0.0.1", true},
		{"10.1.2.3", true},
		{"172.16.5.5", true},
		{"192.168.1.1", true},
		{"169.254.169.254", true},
		{"0.0.0.0", true},
		{"100.64.0.1", true},
		{"224.0.0.1", true},
		{"240.0.0.1", true},
		{"255.255.255.255", true},
		{"::1", true},
		{"fe80::1", true},
		{"fd00::1", true},
		{"8.8.8.8", false},
		{"93.184.216.34", false},
		{"100.128.0.1", false},
		{"2606:2800:220:1:248:1893:25c8:1946", false},
	}

	for _, tc := range cases {
		t.Run(tc.addr, func(t *testing.T) {
			ip := net.ParseIP(tc.addr)
			require.NotNil(t, ip)
			assert.Equal(t, tc.forbidden, isForbiddenAddress(ip))
		})
	}
}

func TestValidateUnfurlTargetLiteralAddress(t *testing.T) {
	ctx := context.Background()

	assert.Error(t, validateUnfurlTarget(ctx, "127.0.0.1"))
	assert.Error(t, validateUnfurlTarget(ctx, "::1"))
	assert.NoError(t, validateUnfurlTarget(ctx, "8.8.8.8"))
}

func TestExtractFirstLink(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"no link", "nothing to see here", ""},
		{"plain link", "read https://example.com/docs now", "https://example.com/docs"},
		{"trailing period", "see https://example.com/docs.", "https://example.com/docs"},
		{"wrapped in parens", "(see https://example.com/a?b=c)", "https://example.com/a?b=c"},
		{"first of several", "http://first.example and https://second.example", "http://first.example"},
		{"non web scheme", "grab it at ftp://files.example.com", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractFirstLink(tc.content))
		})
	}
}

func TestFetchLinkMetadataRejectsUnsafeTargets(t *testing.T) {
	ctx := context.Background()

	assert.Nil(t, FetchLinkMetadata(ctx, "ftp://example.com/file"))
	assert.Nil(t, FetchLinkMetadata(ctx, "not a url at all"))
	assert.Nil(t, FetchLinkMetadata(ctx, "http://127.0.0.1/admin"))
	assert.Nil(t, FetchLinkMetadata(ctx, "http://169.254.169.254/latest/meta-data/"))
	assert.Nil(t, FetchLinkMetadata(ctx, "http://10.0.0.8:8080/internal"))
	assert.Nil(t, FetchLinkMetadata(ctx, "https://[::1]/x"))
}

func TestExtractLinkEmbedPrefersOpenGraph(t *testing.T) {
	base, err := url.Parse("https://blog.example.com/posts/42")
	require.NoError(t, err)

	body := `<html><head>
<meta property="og:title" content="OG Title"/>
<meta name="twitter:title" content="TW Title"/>
<meta property="og:description" content="OG Desc"/>
<meta name="description" content="Meta Desc"/>
<meta property="og:image" content="/img/cover.png"/>
<meta property="og:site_name" content="Example Blog"/>
<link rel="icon" href="/static/fav.png"/>
<title>Page Title</title>
</head><body></body></html>`

	embed := extractLinkEmbed("https://blog.example.com/posts/42", base, []byte(body))
	require.NotNil(t, embed)

	assert.Equal(t, "https://blog.example.com/posts/42", embed.URL)
	assert.Equal(t, "OG Title", embed.Title)
	assert.Equal(t, "OG Desc", embed.Description)
	assert.Equal(t, "https://blog.example.com/img/cover.png", embed.Image)
	assert.Equal(t, "Example Blog", embed.SiteName)
	assert.Equal(t, "https://blog.example.com/static/fav.png", embed.Favicon)
}

func TestExtractLinkEmbedTwitterFallback(t *testing.T) {
	base, err := url.Parse("https://news.example.com/item")
	require.NoError(t, err)

	body := `<html><head>
<meta name="twitter:title" content="TW Title"/>
<meta name="twitter:description" content="TW Desc"/>
<meta name="twitter:image" content="https://cdn.example.com/pic.jpg"/>
<title>Page Title</title>
</head><body></body></html>`

	embed := extractLinkEmbed("https://news.example.com/item", base, []byte(body))
	require.NotNil(t, embed)

	assert.Equal(t, "TW Title", embed.Title)
	assert.Equal(t, "TW Desc", embed.Description)
	assert.Equal(t, "https://cdn.example.com/pic.jpg", embed.Image)
}

func TestExtractLinkEmbedTitleElementFallback(t *testing.T) {
	base, err := url.Parse("https://plain.example.com/page")
	require.NoError(t, err)

	body := `<html><head><title>  Just a Page  </title></head><body></body></html>`

	embed := extractLinkEmbed("https://plain.example.com/page", base, []byte(body))
	require.NotNil(t, embed)

	assert.Equal(t, "Just a Page", embed.Title)
	assert.Equal(t, "https://plain.example.com/favicon.ico", embed.Favicon)
}

func TestExtractLinkEmbedHostnameFallback(t *testing.T) {
	base, err := url.Parse("https://bare.example.com/x")
	require.NoError(t, err)

	embed := extractLinkEmbed("https://bare.example.com/x", base, []byte("<html><body>hi</body></html>"))
	require.NotNil(t, embed)

	assert.Equal(t, "bare.example.com", embed.Title)
	assert.Empty(t, embed.Description)
	assert.Empty(t, embed.Image)
}

func TestFetchLinkMetadataNeverReachesLoopbackServers(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><meta property="og:title" content="Bait"/></head></html>`))
	}))
	defer srv.Close()

	embed := FetchLinkMetadata(context.Background(), srv.URL)

	assert.Nil(t, embed)
	assert.Zero(t, hits.Load(), "the guard must reject the address before any request is made")
}
