// Package suspicion flags abusive sending patterns in a recipient's history.
//
// Analysis is advisory. It never blocks or deletes anything. The dashboard
// uses the result to offer a one-click block. Analyze is a pure function of
// its inputs: it reads no clock and keeps no counters between calls.
package suspicion

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/forPelevin/gomoji"

	"github.com/ignite/whisperbox/internal/domain"
)

// Severity grades a finding.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

var severityRank = map[Severity]int{SeverityLow: 1, SeverityMedium: 2, SeverityHigh: 3}

// Result is the detector's verdict for one sender.
type Result struct {
	IsSuspicious bool     `json:"is_suspicious"`
	Reason       string   `json:"reason,omitempty"`
	Severity     Severity `json:"severity"`
	MessageCount int      `json:"message_count"`
	BurstCount   int      `json:"burst_count"`
	RepeatCount  int      `json:"repeat_count"`
}

// Thresholds tune the heuristics.
type Thresholds struct {
	BurstWindow time.Duration `yaml:"burst_window"`
	BurstMedium int           `yaml:"burst_medium"`
	BurstHigh   int           `yaml:"burst_high"`
	RepeatCount int           `yaml:"repeat_count"`
	VolumeLow   int           `yaml:"volume_low"`
}

// DefaultThresholds returns the production defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		BurstWindow: 5 * time.Minute,
		BurstMedium: 5,
		BurstHigh:   10,
		RepeatCount: 3,
		VolumeLow:   20,
	}
}

// Detector applies Thresholds. The zero value is not usable; call NewDetector.
type Detector struct {
	th Thresholds
}

// NewDetector fills any non-positive threshold from DefaultThresholds.
func NewDetector(th Thresholds) *Detector {
	def := DefaultThresholds()
	if th.BurstWindow <= 0 {
		th.BurstWindow = def.BurstWindow
	}
	if th.BurstMedium <= 0 {
		th.BurstMedium = def.BurstMedium
	}
	if th.BurstHigh <= 0 {
		th.BurstHigh = def.BurstHigh
	}
	if th.RepeatCount <= 0 {
		th.RepeatCount = def.RepeatCount
	}
	if th.VolumeLow <= 0 {
		th.VolumeLow = def.VolumeLow
	}
	return &Detector{th: th}
}

type finding struct {
	severity Severity
	reason   string
}

// Analyze inspects the messages sent by fp. Messages from other senders are
// ignored, so callers may pass a whole inbox.
func (d *Detector) Analyze(messages []domain.Message, fp string) Result {
	var times []time.Time
	contents := make(map[string]int)
	for _, m := range messages {
		if m.SenderFingerprint != fp {
			continue
		}
		times = append(times, m.CreatedAt)
		if norm := Normalize(m.Content); norm != "" {
			contents[norm]++
		}
	}

	res := Result{Severity: SeverityLow, MessageCount: len(times)}
	if len(times) == 0 {
		return res
	}

	res.BurstCount = maxInWindow(times, d.th.BurstWindow)
	for _, n := range contents {
		if n > res.RepeatCount {
			res.RepeatCount = n
		}
	}

	var findings []finding
	switch {
	case res.BurstCount >= d.th.BurstHigh:
		findings = append(findings, finding{SeverityHigh, fmt.Sprintf("%d messages within %s", res.BurstCount, humanDuration(d.th.BurstWindow))})
	case res.BurstCount >= d.th.BurstMedium:
		findings = append(findings, finding{SeverityMedium, fmt.Sprintf("%d messages within %s", res.BurstCount, humanDuration(d.th.BurstWindow))})
	}
	if res.RepeatCount >= d.th.RepeatCount {
		findings = append(findings, finding{SeverityMedium, fmt.Sprintf("same message sent %d times", res.RepeatCount)})
	}
	if res.MessageCount >= d.th.VolumeLow {
		findings = append(findings, finding{SeverityLow, fmt.Sprintf("frequent sender: %d messages", res.MessageCount)})
	}

	if len(findings) == 0 {
		return res
	}
	worst := findings[0]
	for _, f := range findings[1:] {
		if severityRank[f.severity] > severityRank[worst.severity] {
			worst = f
		}
	}
	res.IsSuspicious = true
	res.Severity = worst.severity
	res.Reason = worst.reason
	return res
}

// Normalize folds content for repetition checks: emoji removed, lowercased,
// punctuation dropped and whitespace collapsed.
func Normalize(content string) string {
	s := strings.ToLower(gomoji.RemoveEmojis(content))
	s = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// maxInWindow returns the largest number of timestamps inside any window of
// length w, using a two-pointer sweep over the sorted times.
func maxInWindow(times []time.Time, w time.Duration) int {
	sorted := make([]time.Time, len(times))
	copy(sorted, times)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	best, lo := 0, 0
	for hi := range sorted {
		for sorted[hi].Sub(sorted[lo]) > w {
			lo++
		}
		if n := hi - lo + 1; n > best {
			best = n
		}
	}
	return best
}

func humanDuration(d time.Duration) string {
	if d%time.Minute == 0 {
		m := int(d / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	return d.String()
}
