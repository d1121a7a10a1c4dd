package classify

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/ignite/whisperbox/internal/domain"
)

// MaxParamLength caps every sanitized free-text value, in characters.
const MaxParamLength = 100

var unsafeChars = strings.NewReplacer("<", "", ">", "", `"`, "", "'", "", "`", "")

// SanitizeParam strips markup-significant characters and truncates to
// MaxParamLength characters.
func SanitizeParam(s string) string {
	s = strings.TrimSpace(unsafeChars.Replace(s))
	if utf8.RuneCountInString(s) <= MaxParamLength {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:MaxParamLength]))
}

// ExtractUTM reads the five utm_* parameters. Missing parameters are empty.
func ExtractUTM(q url.Values) domain.UTMParams {
	return domain.UTMParams{
		Source:   SanitizeParam(q.Get("utm_source")),
		Medium:   SanitizeParam(q.Get("utm_medium")),
		Campaign: SanitizeParam(q.Get("utm_campaign")),
		Term:     SanitizeParam(q.Get("utm_term")),
		Content:  SanitizeParam(q.Get("utm_content")),
	}
}

// ExtractUTMFromURL parses raw and extracts its UTM parameters.
func ExtractUTMFromURL(raw string) (domain.UTMParams, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return domain.UTMParams{}, fmt.Errorf("parse url: %w", err)
	}
	return ExtractUTM(u.Query()), nil
}

// BuildURLWithUTM appends the non-empty UTM values to base, preserving any
// existing query parameters. Used to generate share links per platform.
func BuildURLWithUTM(base string, p domain.UTMParams) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	set := func(key, val string) {
		if val = SanitizeParam(val); val != "" {
			q.Set(key, val)
		}
	}
	set("utm_source", p.Source)
	set("utm_medium", p.Medium)
	set("utm_campaign", p.Campaign)
	set("utm_term", p.Term)
	set("utm_content", p.Content)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
