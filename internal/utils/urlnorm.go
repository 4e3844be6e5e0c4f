package utils

import (
	"net/url"
	"strings"

	"github.com/amaumene/clipgrab/internal/models"
	"golang.org/x/net/publicsuffix"
)

const (
	youtubeWatchURL = "https://www.youtube.com/watch"
	facebookHost    = "www.facebook.com"
)

// facebookQueryKeys are the only query parameters that address a Facebook post or comment
var facebookQueryKeys = []string{"comment_id", "story_fbid", "id", "v"}

// ParseQuery normalizes a raw URL and tags it with its platform
func ParseQuery(raw string) models.MediaQuery {
	normalized := NormalizeURL(raw)

	platform := models.PlatformOther
	if u, ok := parseAbsolute(normalized); ok {
		platform = DetectPlatform(u.Hostname())
	}

	return models.MediaQuery{URL: normalized, Platform: platform}
}

// DetectPlatform maps a host name to a platform, case-insensitively
func DetectPlatform(host string) models.Platform {
	switch registrableDomain(host) {
	case "tiktok.com":
		return models.PlatformTikTok
	case "youtube.com", "youtu.be":
		return models.PlatformYouTube
	case "facebook.com", "fb.com", "fb.watch":
		return models.PlatformFacebook
	case "instagram.com":
		return models.PlatformInstagram
	default:
		return models.PlatformOther
	}
}

// NormalizeURL rewrites a pasted URL into its canonical form.
// Input that is not an absolute http(s) URL is returned trimmed but otherwise untouched.
// The result is stable: NormalizeURL(NormalizeURL(s)) == NormalizeURL(s).
func NormalizeURL(raw string) string {
	trimmed := strings.TrimSpace(raw)

	u, ok := parseAbsolute(trimmed)
	if !ok {
		return trimmed
	}
	u.Host = strings.ToLower(u.Host)

	domain := registrableDomain(u.Hostname())
	switch domain {
	case "tiktok.com":
		if strings.Contains(u.Path, "/_video/") {
			for strings.Contains(u.Path, "/_video/") {
				u.Path = strings.ReplaceAll(u.Path, "/_video/", "/video/")
			}
			u.RawPath = ""
		}
		stripQuery(u)

	case "youtu.be":
		id := lastSegment(u.Path)
		if id != "" {
			return youtubeWatch(id)
		}
		stripQuery(u)

	case "youtube.com":
		if id := u.Query().Get("v"); id != "" {
			return youtubeWatch(id)
		}
		stripQuery(u)

	case "facebook.com", "fb.com", "fb.watch":
		// fb.watch paths only exist on the short-link host
		if domain != "fb.watch" {
			u.Host = facebookHost
		}
		query := u.Query()
		keep := url.Values{}
		for _, key := range facebookQueryKeys {
			if value := query.Get(key); value != "" {
				keep.Set(key, value)
			}
		}
		u.RawQuery = keep.Encode()
		u.ForceQuery = false
		u.Fragment = ""
		u.RawFragment = ""

	default:
		stripQuery(u)
	}

	return u.String()
}

// parseAbsolute parses s and accepts only http(s) URLs with a host
func parseAbsolute(s string) (*url.URL, bool) {
	if s == "" {
		return nil, false
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}
	if u.Hostname() == "" {
		return nil, false
	}
	return u, true
}

// registrableDomain returns the eTLD+1 of host, or host itself when there is none
func registrableDomain(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

func stripQuery(u *url.URL) {
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
}

func lastSegment(p string) string {
	p = strings.Trim(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

func youtubeWatch(id string) string {
	return youtubeWatchURL + "?" + url.Values{"v": {id}}.Encode()
}
