package notify

import (
	"fmt"

	"github.com/osteele/liquid"

	"github.com/ignite/whisperbox/internal/config"
	"github.com/ignite/whisperbox/internal/domain"
)

const (
	defaultTitle        = `New anonymous message`
	defaultBody         = `{% if referrer_platform != "" and referrer_platform != "direct" and referrer_platform != "unknown" %}Someone from {{ referrer_platform | capitalize }}: {% endif %}{{ preview }}`
	defaultEmailSubject = `@{{ username }}, you have a new anonymous message`
	defaultEmailBody    = `<p>{{ preview }}</p>{% if dashboard_url != "" %}<p><a href="{{ dashboard_url }}">Open your inbox</a></p>{% endif %}`
)

// Rendered is the text of one alert across channels.
type Rendered struct {
	Title        string
	Body         string
	EmailSubject string
	EmailBody    string
}

// Renderer holds the parsed alert templates.
type Renderer struct {
	title, body, subject, emailBody *liquid.Template
	dashboardURL                    string
}

// NewRenderer parses the configured templates, falling back to built-in
// defaults for any left empty.
func NewRenderer(cfg config.TemplateConfig, dashboardURL string) (*Renderer, error) {
	engine := liquid.NewEngine()
	parse := func(name, src, fallback string) (*liquid.Template, error) {
		if src == "" {
			src = fallback
		}
		tpl, err := engine.ParseString(src)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		return tpl, nil
	}

	r := &Renderer{dashboardURL: dashboardURL}
	var err error
	if r.title, err = parse("title", cfg.Title, defaultTitle); err != nil {
		return nil, err
	}
	if r.body, err = parse("body", cfg.Body, defaultBody); err != nil {
		return nil, err
	}
	if r.subject, err = parse("email_subject", cfg.EmailSubject, defaultEmailSubject); err != nil {
		return nil, err
	}
	if r.emailBody, err = parse("email_body", cfg.EmailBody, defaultEmailBody); err != nil {
		return nil, err
	}
	return r, nil
}

// Render fills every template for one notification.
func (r *Renderer) Render(n domain.NewMessageNotification, p *domain.Profile) (Rendered, error) {
	bindings := liquid.Bindings{
		"preview":           n.Preview,
		"referrer_platform": n.ReferrerPlatform,
		"device_type":       n.DeviceType,
		"username":          p.Username,
		"display_name":      p.DisplayName,
		"dashboard_url":     r.dashboardURL,
	}

	var out Rendered
	for _, t := range []struct {
		tpl *liquid.Template
		dst *string
	}{
		{r.title, &out.Title},
		{r.body, &out.Body},
		{r.subject, &out.EmailSubject},
		{r.emailBody, &out.EmailBody},
	} {
		s, err := t.tpl.RenderString(bindings)
		if err != nil {
			return Rendered{}, fmt.Errorf("render notification: %w", err)
		}
		*t.dst = s
	}
	return out, nil
}
