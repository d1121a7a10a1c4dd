// Package classify turns request metadata into a domain.ClientContext:
// device and browser from the user agent, traffic source from the referrer,
// campaign attribution from UTM parameters and whatever the browser reported
// about itself.
//
// Every function here is pure. Malformed input degrades to "unknown" or
// "direct", never to an error.
package classify

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/ignite/whisperbox/internal/domain"
)

const maxDimension = 20000

// ClientData is the optional block the browser sends alongside a message or
// visit. When present, its referrer and page URL take precedence over the
// request's Referer header and query string, since the page is usually
// served from a CDN and the API call itself carries neither.
type ClientData struct {
	Referrer       string `json:"referrer"`
	PageURL        string `json:"pageUrl"`
	Language       string `json:"language"`
	Timezone       string `json:"timezone"`
	Platform       string `json:"platform"`
	ScreenWidth    int    `json:"screenWidth"`
	ScreenHeight   int    `json:"screenHeight"`
	ViewportWidth  int    `json:"viewportWidth"`
	ViewportHeight int    `json:"viewportHeight"`
	TouchSupport   bool   `json:"touchSupport"`
	CookiesEnabled bool   `json:"cookiesEnabled"`
}

// Capabilities returns the sanitized capability set.
func (c *ClientData) Capabilities() domain.ClientCapabilities {
	if c == nil {
		return domain.ClientCapabilities{}
	}
	return domain.ClientCapabilities{
		Language:       SanitizeParam(c.Language),
		Timezone:       SanitizeParam(c.Timezone),
		Platform:       SanitizeParam(c.Platform),
		ScreenWidth:    clampDimension(c.ScreenWidth),
		ScreenHeight:   clampDimension(c.ScreenHeight),
		ViewportWidth:  clampDimension(c.ViewportWidth),
		ViewportHeight: clampDimension(c.ViewportHeight),
		TouchSupport:   c.TouchSupport,
		CookiesEnabled: c.CookiesEnabled,
	}
}

// Input is everything the classifier looks at.
type Input struct {
	UserAgent string
	Referrer  string
	Query     url.Values
	Client    *ClientData
}

// Classifier holds the one piece of configuration classification needs:
// the public host, so self-referrals are reported as internal.
type Classifier struct {
	siteHost string
}

// New returns a Classifier for the given public host (may be empty).
func New(siteHost string) *Classifier {
	return &Classifier{siteHost: siteHost}
}

// InputFromRequest gathers the classification inputs from r. When the
// browser posted clientData, its referrer and page URL replace the request's
// own Referer and query, since the request comes from the profile page itself.
func InputFromRequest(r *http.Request, client *ClientData) Input {
	in := Input{
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
		Query:     r.URL.Query(),
		Client:    client,
	}
	if client != nil {
		in.Referrer = client.Referrer
		if client.PageURL != "" {
			if u, err := url.Parse(client.PageURL); err == nil {
				in.Query = u.Query()
			}
		}
	}
	return in
}

// FromRequest builds an Input from r and classifies it.
func (c *Classifier) FromRequest(r *http.Request, client *ClientData) domain.ClientContext {
	return c.Classify(InputFromRequest(r, client))
}

// Classify produces the full client context for one request.
func (c *Classifier) Classify(in Input) domain.ClientContext {
	device := ParseUserAgent(in.UserAgent)
	ref := ClassifyReferrer(in.Referrer, c.siteHost)

	if !device.InAppBrowser && ref.IsSocial && isGenericWebview(strings.ToLower(in.UserAgent)) {
		device.InAppBrowser = true
		device.InAppPlatform = ref.Platform
	}

	var utm domain.UTMParams
	if in.Query != nil {
		utm = ExtractUTM(in.Query)
	}

	return domain.ClientContext{
		Device:         device,
		Referrer:       ref,
		UTM:            utm,
		Capabilities:   in.Client.Capabilities(),
		SourcePlatform: sourcePlatform(device, ref, utm),
	}
}

func sourcePlatform(device domain.DeviceInfo, ref domain.ReferrerInfo, utm domain.UTMParams) string {
	switch ref.Category {
	case domain.ReferrerSocial, domain.ReferrerSearch, domain.ReferrerLinkInBio:
		return ref.Platform
	}
	if p := PlatformForSource(utm.Source); p != "" {
		return p
	}
	if device.InAppBrowser {
		return device.InAppPlatform
	}
	return ref.Platform
}

func clampDimension(v int) int {
	if v < 0 {
		return 0
	}
	if v > maxDimension {
		return maxDimension
	}
	return v
}
