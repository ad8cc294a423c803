package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"syscall"
	"time"

	localCache "github.com/chorushq/chorus/pkg/internal/cache"
	"github.com/chorushq/chorus/pkg/internal/database"
	"github.com/chorushq/chorus/pkg/internal/models"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/marshaler"
	"github.com/eko/gocache/lib/v4/store"
	"github.com/spf13/viper"
	"golang.org/x/net/html"
)

const unfurlUserAgent = "ChorusBot/1.0 (+link-preview)"

var urlPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

// ExtractFirstLink finds the first web link in message content, with the
// punctuation that tends to cling to pasted links shaved off.
func ExtractFirstLink(content string) string {
	link := urlPattern.FindString(content)
	return strings.TrimRight(link, `.,;:!?)'"`)
}

func unfurlTimeout() time.Duration {
	if d := viper.GetDuration("unfurl.timeout"); d > 0 {
		return d
	}
	return 5 * time.Second
}

func unfurlBodyLimit() int64 {
	if n := viper.GetInt64("unfurl.max_body_size"); n > 0 {
		return n
	}
	return 1 << 20
}

// isForbiddenAddress rejects every address that points back into our own
// network: loopback, RFC 1918 and ULA ranges, link-local (the cloud
// metadata endpoint lives there), multicast, and the reserved v4 blocks.
func isForbiddenAddress(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast() {
		return true
	}
	if v4 := ip.To4(); v4 != nil {
		switch {
		case v4[0] == 0:
			return true
		case v4[0] == 100 && v4[1] >= 64 && v4[1] <= 127:
			return true
		case v4[0] >= 240:
			return true
		}
	}
	return false
}

// validateUnfurlTarget checks a URL host before we talk to it. Hostnames
// are resolved and every candidate address must be acceptable.
func validateUnfurlTarget(ctx context.Context, host string) error {
	if ip := net.ParseIP(host); ip != nil {
		if isForbiddenAddress(ip) {
			return fmt.Errorf("address %s is not allowed", host)
		}
		return nil
	}

	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return err
	}
	if len(addrs) == 0 {
		return fmt.Errorf("host %s did not resolve", host)
	}
	for _, addr := range addrs {
		if isForbiddenAddress(addr.IP) {
			return fmt.Errorf("host %s resolves into a forbidden address", host)
		}
	}

	return nil
}

// The dial-time check closes the gap between resolving a hostname and
// actually connecting to it.
var unfurlClient = &http.Client{
	Transport: &http.Transport{
		DialContext: (&net.Dialer{
			Control: func(network, address string, conn syscall.RawConn) error {
				host, _, err := net.SplitHostPort(address)
				if err != nil {
					return err
				}
				if ip := net.ParseIP(host); ip != nil && isForbiddenAddress(ip) {
					return fmt.Errorf("address %s is not allowed", host)
				}
				return nil
			},
		}).DialContext,
	},
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		if len(via) >= 5 {
			return fmt.Errorf("too many redirects")
		}
		if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
			return fmt.Errorf("redirected off the web")
		}
		return validateUnfurlTarget(req.Context(), req.URL.Hostname())
	},
}

// FetchLinkMetadata unfurls one link into an embed card. It never returns
// an error, a link that cannot or must not be previewed simply yields nil.
func FetchLinkMetadata(ctx context.Context, rawUrl string) *models.LinkEmbed {
	target, err := url.Parse(rawUrl)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || len(target.Hostname()) == 0 {
		return nil
	}

	if embed := getLinkEmbedCache(rawUrl); embed != nil {
		return embed
	}

	ctx, cancel := context.WithTimeout(ctx, unfurlTimeout())
	defer cancel()

	if err := validateUnfurlTarget(ctx, target.Hostname()); err != nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", unfurlUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.1")

	resp, err := unfurlClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil
	}

	mimetype, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || (mimetype != "text/html" && mimetype != "application/xhtml+xml") {
		embed := &models.LinkEmbed{URL: rawUrl, Title: target.Hostname()}
		putLinkEmbedCache(rawUrl, embed)
		return embed
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, unfurlBodyLimit()))
	if err != nil {
		return nil
	}

	embed := extractLinkEmbed(rawUrl, resp.Request.URL, body)
	if embed != nil {
		putLinkEmbedCache(rawUrl, embed)
	}

	return embed
}

// extractLinkEmbed walks the parsed page for Open Graph tags, falling
// back to Twitter card tags, plain meta tags and finally the title
// element. Relative references resolve against the final fetched URL so
// redirects do not break images.
func extractLinkEmbed(rawUrl string, base *url.URL, body []byte) *models.LinkEmbed {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	meta := make(map[string]string)
	var pageTitle string
	var faviconRef string

	var walk func(node *html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode {
			switch node.Data {
			case "meta":
				var key, content string
				for _, attr := range node.Attr {
					switch strings.ToLower(attr.Key) {
					case "property", "name":
						if len(key) == 0 {
							key = strings.ToLower(attr.Val)
						}
					case "content":
						content = attr.Val
					}
				}
				if len(key) > 0 && len(content) > 0 {
					if _, ok := meta[key]; !ok {
						meta[key] = content
					}
				}
			case "title":
				if len(pageTitle) == 0 {
					var sb strings.Builder
					for child := node.FirstChild; child != nil; child = child.NextSibling {
						if child.Type == html.TextNode {
							sb.WriteString(child.Data)
						}
					}
					pageTitle = strings.TrimSpace(sb.String())
				}
			case "link":
				var rel, href string
				for _, attr := range node.Attr {
					switch strings.ToLower(attr.Key) {
					case "rel":
						rel = strings.ToLower(attr.Val)
					case "href":
						href = attr.Val
					}
				}
				if len(faviconRef) == 0 && strings.Contains(rel, "icon") && len(href) > 0 {
					faviconRef = href
				}
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	pick := func(keys ...string) string {
		for _, key := range keys {
			if val, ok := meta[key]; ok {
				return val
			}
		}
		return ""
	}

	embed := &models.LinkEmbed{
		URL:         rawUrl,
		Title:       pick("og:title", "twitter:title"),
		Description: pick("og:description", "twitter:description", "description"),
		Image:       pick("og:image", "og:image:url", "twitter:image", "twitter:image:src"),
		SiteName:    pick("og:site_name"),
	}
	if len(embed.Title) == 0 {
		embed.Title = pageTitle
	}
	if len(embed.Title) == 0 {
		embed.Title = base.Hostname()
	}
	if len(embed.Image) > 0 {
		embed.Image = resolveRef(base, embed.Image)
	}
	if len(faviconRef) > 0 {
		embed.Favicon = resolveRef(base, faviconRef)
	} else {
		embed.Favicon = fmt.Sprintf("%s://%s/favicon.ico", base.Scheme, base.Host)
	}

	return embed
}

func resolveRef(base *url.URL, ref string) string {
	parsed, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	return base.ResolveReference(parsed).String()
}

// AttachLinkEmbed runs after a send, outside the request cycle. When the
// first link in the message unfurls into something, the message is
// patched and announced again.
func AttachLinkEmbed(ctx context.Context, message models.Message) {
	link := ExtractFirstLink(message.Content)
	if len(link) == 0 {
		return
	}

	embed := FetchLinkMetadata(ctx, link)
	if embed == nil {
		return
	}

	updated, err := GetMessageWithSender(message.ID)
	if err != nil {
		return
	}
	updated.LinkEmbed = embed
	if err := database.C.Save(&updated).Error; err != nil {
		return
	}

	NotifyDestination(updated.Destination(), "messages", "update", updated)
}

func getLinkEmbedCacheKey(rawUrl string) string {
	return fmt.Sprintf("link-embed#%x", sha256.Sum256([]byte(rawUrl)))
}

func getLinkEmbedCache(rawUrl string) *models.LinkEmbed {
	if localCache.S == nil {
		return nil
	}

	cacheManager := cache.New[any](localCache.S)
	marshal := marshaler.New(cacheManager)
	contx := context.Background()

	if val, err := marshal.Get(contx, getLinkEmbedCacheKey(rawUrl), new(models.LinkEmbed)); err == nil {
		return val.(*models.LinkEmbed)
	}

	return nil
}

func putLinkEmbedCache(rawUrl string, embed *models.LinkEmbed) {
	if localCache.S == nil || embed == nil {
		return
	}

	ttl := viper.GetDuration("unfurl.cache_ttl")
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	cacheManager := cache.New[any](localCache.S)
	marshal := marshaler.New(cacheManager)
	contx := context.Background()

	_ = marshal.Set(
		contx,
		getLinkEmbedCacheKey(rawUrl),
		*embed,
		store.WithExpiration(ttl),
		store.WithTags([]string{"link-embed"}),
	)
}
