package controllers

import (
	"net/url"
	"strings"

	"github.com/amaumene/clipgrab/internal/models"
	"github.com/samber/lo"
)

// ProbeStrategy describes how a platform is probed
type ProbeStrategy struct {
	Profiles []models.Profile
	// RetryOnEmpty treats a successful run without playable formats as a failure
	RetryOnEmpty bool
}

// TikTok serves different format lists depending on the app identity the request claims
var tiktokProfiles = []models.Profile{
	models.DefaultProfile,
	{
		Name: "trill",
		Args: []string{"--extractor-args", "tiktok:app_name=trill;app_version=34.1.2;manifest_app_version=2023401020"},
	},
	{
		Name: "musical_ly",
		Args: []string{"--extractor-args", "tiktok:app_name=musical_ly;app_version=35.1.3;manifest_app_version=2023501030"},
	},
}

var facebookVariantHosts = []string{"www.facebook.com", "m.facebook.com", "web.facebook.com"}

var platformHomes = map[models.Platform]string{
	models.PlatformTikTok:    "https://www.tiktok.com/",
	models.PlatformYouTube:   "https://www.youtube.com/",
	models.PlatformFacebook:  "https://www.facebook.com/",
	models.PlatformInstagram: "https://www.instagram.com/",
}

// StrategyFor returns the probe strategy of a platform
func StrategyFor(platform models.Platform) ProbeStrategy {
	switch platform {
	case models.PlatformTikTok:
		return ProbeStrategy{Profiles: tiktokProfiles, RetryOnEmpty: true}
	case models.PlatformFacebook:
		return ProbeStrategy{Profiles: []models.Profile{models.DefaultProfile}, RetryOnEmpty: true}
	default:
		return ProbeStrategy{Profiles: []models.Profile{models.DefaultProfile}}
	}
}

// PlanAttempts expands a query into the ordered list of attempts to try.
// URL variants form the outer loop, profiles the inner one.
func PlanAttempts(q models.MediaQuery) []models.Attempt {
	strategy := StrategyFor(q.Platform)
	referer := RefererFor(q)

	var attempts []models.Attempt
	for _, variant := range URLVariants(q) {
		for _, profile := range strategy.Profiles {
			attempts = append(attempts, models.Attempt{
				URL:      variant,
				Platform: q.Platform,
				Profile:  profile,
				Referer:  referer,
			})
		}
	}
	return attempts
}

// URLVariants lists the URLs a query may be fetched from, preferred first
func URLVariants(q models.MediaQuery) []string {
	if q.Platform != models.PlatformFacebook {
		return []string{q.URL}
	}

	u, err := url.Parse(q.URL)
	if err != nil || !isFacebookHost(u.Hostname()) {
		// fb.watch short links only resolve on their own host
		return []string{q.URL}
	}

	return lo.Map(facebookVariantHosts, func(host string, _ int) string {
		v := *u
		v.Host = host
		return v.String()
	})
}

// RefererFor returns the Referer header sent with every request for q
func RefererFor(q models.MediaQuery) string {
	if home, ok := platformHomes[q.Platform]; ok {
		return home
	}

	u, err := url.Parse(q.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return u.Scheme + "://" + u.Host + "/"
}

func isFacebookHost(host string) bool {
	host = strings.ToLower(host)
	return host == "facebook.com" || strings.HasSuffix(host, ".facebook.com") ||
		host == "fb.com" || strings.HasSuffix(host, ".fb.com")
}
