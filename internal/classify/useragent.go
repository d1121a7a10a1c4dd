package classify

import (
	"strings"

	"github.com/ignite/whisperbox/internal/domain"
)

// signature maps a lowercase user-agent token to a label. Tables are
// scanned in order, so more specific tokens come first.
type signature struct {
	token string
	label string
}

var botSignatures = []string{
	"bot", "crawler", "spider", "headless", "phantom", "slurp",
	"facebookexternalhit", "wget", "curl", "python-requests", "go-http-client",
}

// inAppSignatures identify embedded webviews. label is the host platform.
var inAppSignatures = []signature{
	{"instagram", "instagram"},
	{"fban", "facebook"},
	{"fbav", "facebook"},
	{"fb_iab", "facebook"},
	{"musical_ly", "tiktok"},
	{"bytedancewebview", "tiktok"},
	{"tiktok", "tiktok"},
	{"snapchat", "snapchat"},
	{"twitter", "twitter"},
	{"linkedinapp", "linkedin"},
	{"pinterest", "pinterest"},
	{" line/", "line"},
}

var inAppBrowserNames = map[string]string{
	"instagram": "Instagram",
	"facebook":  "Facebook",
	"tiktok":    "TikTok",
	"snapchat":  "Snapchat",
	"twitter":   "Twitter",
	"linkedin":  "LinkedIn",
	"pinterest": "Pinterest",
	"line":      "LINE",
}

var browserSignatures = []signature{
	{"edg/", "Edge"},
	{"edga/", "Edge"},
	{"edgios/", "Edge"},
	{"opr/", "Opera"},
	{"opera", "Opera"},
	{"samsungbrowser", "Samsung Internet"},
	{"fxios", "Firefox"},
	{"firefox", "Firefox"},
	{"crios", "Chrome"},
	{"chromium", "Chrome"},
	{"chrome", "Chrome"},
	{"safari", "Safari"},
}

var osSignatures = []signature{
	{"iphone", "iOS"},
	{"ipad", "iOS"},
	{"ipod", "iOS"},
	{"windows phone", "Windows Phone"},
	{"android", "Android"},
	{"windows", "Windows"},
	{"cros", "ChromeOS"},
	{"macintosh", "macOS"},
	{"mac os x", "macOS"},
	{"linux", "Linux"},
}

// ParseUserAgent classifies device type, browser and OS. Unrecognised agents
// classify as unknown rather than failing.
func ParseUserAgent(ua string) domain.DeviceInfo {
	lower := strings.ToLower(strings.TrimSpace(ua))
	info := domain.DeviceInfo{
		Type:    deviceType(lower),
		Browser: match(lower, browserSignatures),
		OS:      match(lower, osSignatures),
	}
	if platform := inAppPlatform(lower); platform != "" {
		info.InAppBrowser = true
		info.InAppPlatform = platform
		info.Browser = inAppBrowserNames[platform]
	}
	return info
}

// IsBot reports whether the agent looks automated.
func IsBot(ua string) bool {
	return isBot(strings.ToLower(ua))
}

func isBot(lower string) bool {
	for _, kw := range botSignatures {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func deviceType(lower string) domain.DeviceType {
	switch {
	case lower == "":
		return domain.DeviceUnknown
	case isBot(lower):
		return domain.DeviceBot
	case strings.Contains(lower, "ipad"), strings.Contains(lower, "tablet"),
		strings.Contains(lower, "android") && !strings.Contains(lower, "mobile"):
		return domain.DeviceTablet
	case strings.Contains(lower, "mobi"), strings.Contains(lower, "iphone"), strings.Contains(lower, "ipod"),
		strings.Contains(lower, "android"), strings.Contains(lower, "windows phone"), strings.Contains(lower, "blackberry"):
		return domain.DeviceMobile
	case strings.Contains(lower, "windows"), strings.Contains(lower, "macintosh"),
		strings.Contains(lower, "x11"), strings.Contains(lower, "cros"), strings.Contains(lower, "linux"):
		return domain.DeviceDesktop
	default:
		return domain.DeviceUnknown
	}
}

func inAppPlatform(lower string) string {
	for _, s := range inAppSignatures {
		if strings.Contains(lower, s.token) {
			return s.label
		}
	}
	return ""
}

func match(lower string, table []signature) string {
	if lower == "" {
		return domain.Unknown
	}
	for _, s := range table {
		if strings.Contains(lower, s.token) {
			return s.label
		}
	}
	return domain.Unknown
}

// isGenericWebview catches embedded browsers that strip their app token:
// the Android "; wv)" marker, or iOS WebKit without a Safari token.
func isGenericWebview(lower string) bool {
	if strings.Contains(lower, "; wv)") {
		return true
	}
	ios := strings.Contains(lower, "iphone") || strings.Contains(lower, "ipad")
	return ios && strings.Contains(lower, "applewebkit") && !strings.Contains(lower, "safari")
}
