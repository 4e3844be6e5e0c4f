package utils

import (
	"testing"

	"github.com/amaumene/clipgrab/internal/models"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"youtube short link", "https://youtu.be/abc123", "https://www.youtube.com/watch?v=abc123"},
		{"youtube short link with tracking", "  https://youtu.be/abc123?si=track  ", "https://www.youtube.com/watch?v=abc123"},
		{"youtube mobile watch", "https://m.youtube.com/watch?v=dQw4w9WgXcQ&t=42s&feature=share", "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
		{"youtube shorts", "https://www.youtube.com/shorts/abcDEF?feature=share", "https://www.youtube.com/shorts/abcDEF"},
		{"tiktok malformed path", "https://www.tiktok.com/_video/xyz?foo=1", "https://www.tiktok.com/video/xyz"},
		{"tiktok tracking", "https://www.tiktok.com/@user/video/7300000000000000000?is_from_webapp=1&sender_device=pc#comments", "https://www.tiktok.com/@user/video/7300000000000000000"},
		{"tiktok upper case host", "https://WWW.TIKTOK.COM/@u/video/1?x=1", "https://www.tiktok.com/@u/video/1"},
		{"facebook mobile watch", "https://m.facebook.com/watch/?v=123&ref=sharing&mibextid=abc#frag", "https://www.facebook.com/watch/?v=123"},
		{"facebook permalink", "https://web.facebook.com/permalink.php?story_fbid=9&id=4&comment_id=77&__cft__=x", "https://www.facebook.com/permalink.php?comment_id=77&id=4&story_fbid=9"},
		{"facebook reel", "https://www.facebook.com/reel/1234567890?mibextid=rS40aB7S9Ucbxw6v", "https://www.facebook.com/reel/1234567890"},
		{"facebook short link keeps host", "https://fb.watch/abcDEF/?mibextid=xyz", "https://fb.watch/abcDEF/"},
		{"instagram reel", "https://www.instagram.com/reel/Cxyz/?igsh=abc", "https://www.instagram.com/reel/Cxyz/"},
		{"other host", "https://vimeo.com/123?share=copy#t=10", "https://vimeo.com/123"},
		{"empty query marker", "https://vimeo.com/123?", "https://vimeo.com/123"},
		{"not a url", "not a url", "not a url"},
		{"missing scheme", "  youtu.be/abc  ", "youtu.be/abc"},
		{"unsupported scheme", "ftp://example.com/file", "ftp://example.com/file"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeURL(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeURLIdempotent(t *testing.T) {
	inputs := []string{
		"https://youtu.be/abc123?si=track",
		"https://www.youtube.com/watch?v=abc&list=PL1&index=2",
		"https://www.tiktok.com/_video/_video/xyz?foo=1",
		"https://vm.tiktok.com/ZMabc/?k=1",
		"https://m.facebook.com/story.php?story_fbid=1&id=2&sfnsn=mo",
		"https://fb.watch/abc/?mibextid=1",
		"https://www.instagram.com/p/Cabc/?utm_source=ig_web_copy_link",
		"https://example.com/a%20b/c?x=1#y",
		"garbage input",
	}

	for _, input := range inputs {
		once := NormalizeURL(input)
		twice := NormalizeURL(once)
		if once != twice {
			t.Errorf("NormalizeURL not idempotent for %q: %q then %q", input, once, twice)
		}
	}
}

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		host string
		want models.Platform
	}{
		{"www.tiktok.com", models.PlatformTikTok},
		{"vm.tiktok.com", models.PlatformTikTok},
		{"youtu.be", models.PlatformYouTube},
		{"music.youtube.com", models.PlatformYouTube},
		{"M.FACEBOOK.COM", models.PlatformFacebook},
		{"fb.watch", models.PlatformFacebook},
		{"www.instagram.com", models.PlatformInstagram},
		{"vimeo.com", models.PlatformOther},
		{"notyoutube.com", models.PlatformOther},
		{"localhost", models.PlatformOther},
	}

	for _, tt := range tests {
		if got := DetectPlatform(tt.host); got != tt.want {
			t.Errorf("DetectPlatform(%q) = %s, want %s", tt.host, got, tt.want)
		}
	}
}

func TestParseQuery(t *testing.T) {
	q := ParseQuery("https://youtu.be/abc123")
	if q.URL != "https://www.youtube.com/watch?v=abc123" {
		t.Errorf("Unexpected URL: %s", q.URL)
	}
	if q.Platform != models.PlatformYouTube {
		t.Errorf("Expected youtube, got %s", q.Platform)
	}

	q = ParseQuery("hello")
	if q.URL != "hello" || q.Platform != models.PlatformOther {
		t.Errorf("Unexpected query for garbage input: %+v", q)
	}
}
