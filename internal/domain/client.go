package domain

// DeviceType is the coarse device class parsed from a user agent.
type DeviceType string

const (
	DeviceMobile  DeviceType = "mobile"
	DeviceTablet  DeviceType = "tablet"
	DeviceDesktop DeviceType = "desktop"
	DeviceBot     DeviceType = "bot"
	DeviceUnknown DeviceType = "unknown"
)

// ReferrerCategory groups traffic sources for the recipient's dashboard.
type ReferrerCategory string

const (
	ReferrerDirect    ReferrerCategory = "direct"
	ReferrerSocial    ReferrerCategory = "social"
	ReferrerSearch    ReferrerCategory = "search"
	ReferrerLinkInBio ReferrerCategory = "link_in_bio"
	ReferrerInternal  ReferrerCategory = "internal"
	ReferrerOther     ReferrerCategory = "referral"
)

// Unknown is the sentinel used for any classification that could not be made.
const Unknown = "unknown"

// DeviceInfo describes the sender's or visitor's client.
type DeviceInfo struct {
	Type          DeviceType `json:"type"`
	Browser       string     `json:"browser"`
	OS            string     `json:"os"`
	InAppBrowser  bool       `json:"in_app_browser"`
	InAppPlatform string     `json:"in_app_platform,omitempty"`
}

// ReferrerInfo is the classified Referer header.
type ReferrerInfo struct {
	Platform string           `json:"platform"`
	Category ReferrerCategory `json:"category"`
	Domain   string           `json:"domain,omitempty"`
	IsSocial bool             `json:"is_social"`
}

// UTMParams holds the five standard campaign attribution parameters.
type UTMParams struct {
	Source   string `json:"source,omitempty"`
	Medium   string `json:"medium,omitempty"`
	Campaign string `json:"campaign,omitempty"`
	Term     string `json:"term,omitempty"`
	Content  string `json:"content,omitempty"`
}

// HasUTM reports whether any parameter was present.
func (u UTMParams) HasUTM() bool {
	return u.Source != "" || u.Medium != "" || u.Campaign != "" || u.Term != "" || u.Content != ""
}

// ClientCapabilities is what the browser reported about itself.
type ClientCapabilities struct {
	Language       string `json:"language,omitempty"`
	Timezone       string `json:"timezone,omitempty"`
	Platform       string `json:"platform,omitempty"`
	ScreenWidth    int    `json:"screen_width,omitempty"`
	ScreenHeight   int    `json:"screen_height,omitempty"`
	ViewportWidth  int    `json:"viewport_width,omitempty"`
	ViewportHeight int    `json:"viewport_height,omitempty"`
	TouchSupport   bool   `json:"touch_support"`
	CookiesEnabled bool   `json:"cookies_enabled"`
}

// ClientContext is the full classification of one inbound request.
type ClientContext struct {
	Device       DeviceInfo         `json:"device"`
	Referrer     ReferrerInfo       `json:"referrer"`
	UTM          UTMParams          `json:"utm"`
	Capabilities ClientCapabilities `json:"capabilities"`

	// SourcePlatform is the best attribution guess: the referrer platform,
	// else the UTM source, else the in-app browser's host app.
	SourcePlatform string `json:"source_platform"`
}
