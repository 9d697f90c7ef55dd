package coach

import (
	"math"
	"strings"
	"testing"

	"interview-backend/internal/interview"
	"interview-backend/internal/speech"
)

// constant-amplitude PCM: RMS equals amplitude/32768.
func pcmAt(amplitude int, seconds float64, sampleRate int) []byte {
	n := int(seconds * float64(sampleRate))
	samples := make([]int, n)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = amplitude
		} else {
			samples[i] = -amplitude
		}
	}
	return speech.SamplesToPCM(samples)
}

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func TestCountFillers(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{text: "", want: 0},
		{text: "I built the service in Go.", want: 0},
		{text: "Um, so I basically, uh, wrote it.", want: 3},
		{text: "You know, I mean, it was sort of hard.", want: 3},
		{text: "I like Go. I liked it a lot.", want: 1},
		{text: "The umbrella was kind of red, kind of blue", want: 2},
		{text: "HMM. Actually, LITERALLY.", want: 3},
	}
	for _, tt := range tests {
		if got := CountFillers(tt.text); got != tt.want {
			t.Fatalf("CountFillers(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestWordsPerMinute(t *testing.T) {
	if got := WordsPerMinute(0, 1); got != 0 {
		t.Fatalf("expected 0 for no words, got %v", got)
	}
	if got := WordsPerMinute(10, 0); got != 0 {
		t.Fatalf("expected 0 for zero duration, got %v", got)
	}
	if got := WordsPerMinute(65, 0.5); got != 130 {
		t.Fatalf("expected 130, got %v", got)
	}
}

func TestRMS(t *testing.T) {
	if RMS(nil) != 0 {
		t.Fatalf("expected 0 for silence")
	}
	got := RMS([]int{16384, -16384})
	if math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("expected 0.5, got %v", got)
	}
}

func TestPaceAndVolumeThresholds(t *testing.T) {
	c := New(Thresholds{})
	paces := map[float64]string{0: StatusOK, 100: StatusTooSlow, 110: StatusOK, 170: StatusOK, 171: StatusTooFast}
	for wpm, want := range paces {
		if got := c.PaceStatus(wpm); got != want {
			t.Fatalf("PaceStatus(%v) = %s, want %s", wpm, got, want)
		}
	}
	volumes := map[float64]string{0.01: StatusTooQuiet, 0.02: StatusOK, 0.5: StatusOK, 0.6: StatusTooLoud}
	for rms, want := range volumes {
		if got := c.VolumeStatus(rms); got != want {
			t.Fatalf("VolumeStatus(%v) = %s, want %s", rms, got, want)
		}
	}
}

func TestAnalyzeOK(t *testing.T) {
	c := New(DefaultThresholds())
	// 65 words over 30s = 130 wpm, amplitude ~0.1
	fb := c.Analyze(words(65), pcmAt(3277, 30, 16000), 16000)

	if fb.PaceStatus != StatusOK || fb.VolumeStatus != StatusOK {
		t.Fatalf("unexpected statuses %+v", fb)
	}
	if fb.WordsPerMinute != 130 {
		t.Fatalf("expected 130 wpm, got %v", fb.WordsPerMinute)
	}
	if fb.AlertLevel != interview.AlertOK || fb.PrimaryAlert != "" {
		t.Fatalf("expected OK alert, got %+v", fb)
	}
}

func TestAnalyzeAlertLevels(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
		amplitude  int
		want       interview.AlertLevel
	}{
		{name: "quiet is critical", transcript: words(65), amplitude: 100, want: interview.AlertCritical},
		{name: "loud is critical", transcript: words(65), amplitude: 30000, want: interview.AlertCritical},
		{name: "too fast is warning", transcript: words(100), amplitude: 3277, want: interview.AlertWarning},
		{name: "four fillers is warning", transcript: words(61) + " um uh um uh", amplitude: 3277, want: interview.AlertWarning},
		{name: "eight fillers is critical", transcript: words(57) + " um uh um uh um uh um uh", amplitude: 3277, want: interview.AlertCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := New(DefaultThresholds()).Analyze(tt.transcript, pcmAt(tt.amplitude, 30, 16000), 16000)
			if fb.AlertLevel != tt.want {
				t.Fatalf("expected %s, got %s (%+v)", tt.want, fb.AlertLevel, fb)
			}
			if tt.want != interview.AlertOK && fb.PrimaryAlert == "" {
				t.Fatalf("expected a primary alert message")
			}
		})
	}
}

func TestAverageWPMResetAndSeed(t *testing.T) {
	c := New(DefaultThresholds())
	c.Analyze(words(60), pcmAt(3277, 30, 16000), 16000) // 120
	c.Analyze(words(70), pcmAt(3277, 30, 16000), 16000) // 140
	c.Analyze("", pcmAt(3277, 30, 16000), 16000)        // no words, not counted
	if got := c.AverageWPM(); got != 130 {
		t.Fatalf("expected 130 average, got %v", got)
	}

	c.Reset()
	if c.AverageWPM() != 0 {
		t.Fatalf("expected 0 after reset")
	}

	c.Seed([]float64{100, 200})
	if c.AverageWPM() != 150 {
		t.Fatalf("expected 150 after seed, got %v", c.AverageWPM())
	}
}
