package classify

import (
	"net/url"
	"strings"

	"github.com/ignite/whisperbox/internal/domain"
)

type platformEntry struct {
	platform string
	category domain.ReferrerCategory
}

// referrerHosts is matched against the referrer hostname and each of its
// parent domains, so l.instagram.com resolves through instagram.com.
var referrerHosts = map[string]platformEntry{
	"instagram.com":    {"instagram", domain.ReferrerSocial},
	"facebook.com":     {"facebook", domain.ReferrerSocial},
	"fb.com":           {"facebook", domain.ReferrerSocial},
	"fb.me":            {"facebook", domain.ReferrerSocial},
	"messenger.com":    {"facebook", domain.ReferrerSocial},
	"tiktok.com":       {"tiktok", domain.ReferrerSocial},
	"snapchat.com":     {"snapchat", domain.ReferrerSocial},
	"twitter.com":      {"twitter", domain.ReferrerSocial},
	"x.com":            {"twitter", domain.ReferrerSocial},
	"t.co":             {"twitter", domain.ReferrerSocial},
	"threads.net":      {"threads", domain.ReferrerSocial},
	"linkedin.com":     {"linkedin", domain.ReferrerSocial},
	"lnkd.in":          {"linkedin", domain.ReferrerSocial},
	"reddit.com":       {"reddit", domain.ReferrerSocial},
	"youtube.com":      {"youtube", domain.ReferrerSocial},
	"youtu.be":         {"youtube", domain.ReferrerSocial},
	"pinterest.com":    {"pinterest", domain.ReferrerSocial},
	"pin.it":           {"pinterest", domain.ReferrerSocial},
	"whatsapp.com":     {"whatsapp", domain.ReferrerSocial},
	"wa.me":            {"whatsapp", domain.ReferrerSocial},
	"t.me":             {"telegram", domain.ReferrerSocial},
	"telegram.org":     {"telegram", domain.ReferrerSocial},
	"discord.com":      {"discord", domain.ReferrerSocial},
	"tumblr.com":       {"tumblr", domain.ReferrerSocial},
	"bsky.app":         {"bluesky", domain.ReferrerSocial},
	"linktr.ee":        {"linktree", domain.ReferrerLinkInBio},
	"beacons.ai":       {"beacons", domain.ReferrerLinkInBio},
	"bio.link":         {"biolink", domain.ReferrerLinkInBio},
	"lnk.bio":          {"lnkbio", domain.ReferrerLinkInBio},
	"carrd.co":         {"carrd", domain.ReferrerLinkInBio},
	"bing.com":         {"bing", domain.ReferrerSearch},
	"duckduckgo.com":   {"duckduckgo", domain.ReferrerSearch},
	"yahoo.com":        {"yahoo", domain.ReferrerSearch},
	"baidu.com":        {"baidu", domain.ReferrerSearch},
	"ecosia.org":       {"ecosia", domain.ReferrerSearch},
	"search.brave.com": {"brave", domain.ReferrerSearch},
}

// searchLabels catch engines served on many country TLDs (google.co.uk, yandex.ru).
var searchLabels = map[string]string{
	"google": "google",
	"yandex": "yandex",
}

// androidAppReferrers maps android-app:// package names sent by native apps.
var androidAppReferrers = map[string]string{
	"com.instagram.android":    "instagram.com",
	"com.facebook.katana":      "facebook.com",
	"com.facebook.orca":        "facebook.com",
	"com.zhiliaoapp.musically": "tiktok.com",
	"com.ss.android.ugc.trill": "tiktok.com",
	"com.snapchat.android":     "snapchat.com",
	"com.twitter.android":      "twitter.com",
	"com.linkedin.android":     "linkedin.com",
	"com.reddit.frontpage":     "reddit.com",
}

// ClassifyReferrer maps a Referer value to platform and category. siteHost
// is the application's own host; self-referrals classify as internal.
func ClassifyReferrer(raw, siteHost string) domain.ReferrerInfo {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.ReferrerInfo{Platform: "direct", Category: domain.ReferrerDirect}
	}

	host := referrerHost(raw)
	if host == "" {
		return domain.ReferrerInfo{Platform: "other", Category: domain.ReferrerOther}
	}

	if siteHost != "" && (host == normalizeHost(siteHost) || strings.HasSuffix(host, "."+normalizeHost(siteHost))) {
		return domain.ReferrerInfo{Platform: "internal", Category: domain.ReferrerInternal, Domain: host}
	}

	if entry, ok := lookupHost(host); ok {
		return domain.ReferrerInfo{
			Platform: entry.platform,
			Category: entry.category,
			Domain:   host,
			IsSocial: entry.category == domain.ReferrerSocial || entry.category == domain.ReferrerLinkInBio,
		}
	}

	for _, label := range strings.Split(host, ".") {
		if engine, ok := searchLabels[label]; ok {
			return domain.ReferrerInfo{Platform: engine, Category: domain.ReferrerSearch, Domain: host}
		}
	}

	return domain.ReferrerInfo{Platform: "other", Category: domain.ReferrerOther, Domain: host}
}

// PlatformForSource maps a UTM source or similar hint onto a known platform
// name, returning the lowercase input when it is not in the table.
func PlatformForSource(source string) string {
	s := strings.ToLower(strings.TrimSpace(source))
	switch s {
	case "":
		return ""
	case "ig", "insta":
		return "instagram"
	case "fb":
		return "facebook"
	case "tt":
		return "tiktok"
	case "x":
		return "twitter"
	case "snap":
		return "snapchat"
	}
	if entry, ok := lookupHost(s); ok {
		return entry.platform
	}
	if entry, ok := lookupHost(s + ".com"); ok {
		return entry.platform
	}
	return s
}

func lookupHost(host string) (platformEntry, bool) {
	for h := host; h != ""; {
		if entry, ok := referrerHosts[h]; ok {
			return entry, true
		}
		idx := strings.Index(h, ".")
		if idx < 0 {
			break
		}
		h = h[idx+1:]
	}
	return platformEntry{}, false
}

func referrerHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		u, err = url.Parse("https://" + raw)
		if err != nil {
			return ""
		}
	}
	if u.Scheme == "android-app" {
		if mapped, ok := androidAppReferrers[strings.ToLower(u.Host)]; ok {
			return mapped
		}
	}
	return normalizeHost(u.Hostname())
}

func normalizeHost(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.TrimSuffix(h, ".")
	return strings.TrimPrefix(h, "www.")
}
