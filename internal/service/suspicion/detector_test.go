package suspicion

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ignite/whisperbox/internal/domain"
)

var base = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

// msgs builds messages from fp spaced by the given gaps, each with distinct content.
func msgs(fp string, gaps []time.Duration) []domain.Message {
	out := make([]domain.Message, len(gaps))
	at := base
	for i, g := range gaps {
		at = at.Add(g)
		out[i] = domain.Message{
			SenderFingerprint: fp,
			CreatedAt:         at,
			Content:           fmt.Sprintf("message number %d", i),
		}
	}
	return out
}

func repeat(d time.Duration, n int) []time.Duration {
	out := make([]time.Duration, n)
	for i := range out {
		out[i] = d
	}
	return out
}

func TestAnalyze_NoMessages(t *testing.T) {
	res := NewDetector(DefaultThresholds()).Analyze(nil, "fp")
	assert.False(t, res.IsSuspicious)
	assert.Equal(t, SeverityLow, res.Severity)
	assert.Zero(t, res.MessageCount)
}

func TestAnalyze_QuietSender(t *testing.T) {
	res := NewDetector(DefaultThresholds()).Analyze(msgs("fp", repeat(time.Hour, 3)), "fp")
	assert.False(t, res.IsSuspicious)
	assert.Equal(t, 3, res.MessageCount)
	assert.Equal(t, 1, res.BurstCount)
}

func TestAnalyze_BurstMedium(t *testing.T) {
	res := NewDetector(DefaultThresholds()).Analyze(msgs("fp", repeat(30*time.Second, 5)), "fp")
	assert.True(t, res.IsSuspicious)
	assert.Equal(t, SeverityMedium, res.Severity)
	assert.Equal(t, 5, res.BurstCount)
	assert.Equal(t, "5 messages within 5 minutes", res.Reason)
}

func TestAnalyze_BurstHigh(t *testing.T) {
	res := NewDetector(DefaultThresholds()).Analyze(msgs("fp", repeat(20*time.Second, 12)), "fp")
	assert.True(t, res.IsSuspicious)
	assert.Equal(t, SeverityHigh, res.Severity)
	assert.Equal(t, 12, res.BurstCount)
}

func TestAnalyze_RepeatedContentIgnoresEmojiAndCase(t *testing.T) {
	messages := []domain.Message{
		{SenderFingerprint: "fp", CreatedAt: base, Content: "you are great"},
		{SenderFingerprint: "fp", CreatedAt: base.Add(time.Hour), Content: "You are GREAT 😀"},
		{SenderFingerprint: "fp", CreatedAt: base.Add(2 * time.Hour), Content: "  you   are great!!! "},
	}
	res := NewDetector(DefaultThresholds()).Analyze(messages, "fp")
	assert.True(t, res.IsSuspicious)
	assert.Equal(t, SeverityMedium, res.Severity)
	assert.Equal(t, 3, res.RepeatCount)
	assert.Equal(t, "same message sent 3 times", res.Reason)
}

func TestAnalyze_FrequentSenderIsLow(t *testing.T) {
	res := NewDetector(DefaultThresholds()).Analyze(msgs("fp", repeat(2*time.Hour, 20)), "fp")
	assert.True(t, res.IsSuspicious)
	assert.Equal(t, SeverityLow, res.Severity)
	assert.Equal(t, "frequent sender: 20 messages", res.Reason)
}

func TestAnalyze_WorstFindingWins(t *testing.T) {
	gaps := append(repeat(2*time.Hour, 15), repeat(10*time.Second, 10)...)
	res := NewDetector(DefaultThresholds()).Analyze(msgs("fp", gaps), "fp")
	assert.True(t, res.IsSuspicious)
	assert.Equal(t, SeverityHigh, res.Severity)
	assert.Equal(t, 25, res.MessageCount)
}

func TestAnalyze_IgnoresOtherSenders(t *testing.T) {
	inbox := append(msgs("noisy", repeat(10*time.Second, 12)), msgs("fp", repeat(time.Hour, 2))...)
	res := NewDetector(DefaultThresholds()).Analyze(inbox, "fp")
	assert.False(t, res.IsSuspicious)
	assert.Equal(t, 2, res.MessageCount)
}

func TestAnalyze_Deterministic(t *testing.T) {
	d := NewDetector(DefaultThresholds())
	inbox := msgs("fp", repeat(30*time.Second, 7))
	first := d.Analyze(inbox, "fp")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, d.Analyze(inbox, "fp"))
	}
}

func TestAnalyze_UnsortedInput(t *testing.T) {
	inbox := msgs("fp", repeat(30*time.Second, 6))
	inbox[0], inbox[5] = inbox[5], inbox[0]
	inbox[1], inbox[3] = inbox[3], inbox[1]
	res := NewDetector(DefaultThresholds()).Analyze(inbox, "fp")
	assert.Equal(t, 6, res.BurstCount)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "hello there", Normalize("  Hello,   there! 👋 "))
	assert.Equal(t, "", Normalize("🔥🔥🔥"))
}

func TestNewDetector_FillsDefaults(t *testing.T) {
	d := NewDetector(Thresholds{BurstHigh: 50})
	assert.Equal(t, 50, d.th.BurstHigh)
	assert.Equal(t, DefaultThresholds().BurstWindow, d.th.BurstWindow)
}
