package coach

import (
	"math"
	"sync"

	"interview-backend/internal/interview"
	"interview-backend/internal/speech"
)

// Status values for pace and volume.
const (
	StatusOK       = "OK"
	StatusTooSlow  = "TOO_SLOW"
	StatusTooFast  = "TOO_FAST"
	StatusTooQuiet = "TOO_QUIET"
	StatusTooLoud  = "TOO_LOUD"
)

// Thresholds tune the coach. Zero values fall back to DefaultThresholds.
type Thresholds struct {
	MinWPM         float64
	MaxWPM         float64
	MinVolume      float64
	MaxVolume      float64
	FillerWarning  int
	FillerCritical int
}

// DefaultThresholds are conversational pace and a comfortable microphone level.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinWPM:         110,
		MaxWPM:         170,
		MinVolume:      0.02,
		MaxVolume:      0.5,
		FillerWarning:  4,
		FillerCritical: 8,
	}
}

// Coach analyses delivery of spoken answers.
type Coach struct {
	t Thresholds

	mu  sync.Mutex
	wpm []float64
}

// New returns a coach using t.
func New(t Thresholds) *Coach {
	d := DefaultThresholds()
	if t.MinWPM <= 0 {
		t.MinWPM = d.MinWPM
	}
	if t.MaxWPM <= 0 {
		t.MaxWPM = d.MaxWPM
	}
	if t.MinVolume <= 0 {
		t.MinVolume = d.MinVolume
	}
	if t.MaxVolume <= 0 {
		t.MaxVolume = d.MaxVolume
	}
	if t.FillerWarning <= 0 {
		t.FillerWarning = d.FillerWarning
	}
	if t.FillerCritical <= 0 {
		t.FillerCritical = d.FillerCritical
	}
	return &Coach{t: t}
}

// Analyze grades the answer's pace, volume and filler use.
func (c *Coach) Analyze(transcript string, pcm []byte, sampleRate int) interview.CoachingFeedback {
	duration := speech.PCMDuration(len(pcm), sampleRate)
	wpm := WordsPerMinute(len(Words(transcript)), duration.Minutes())
	if wpm > 0 {
		c.mu.Lock()
		c.wpm = append(c.wpm, wpm)
		c.mu.Unlock()
	}

	volume := c.VolumeStatus(RMS(speech.PCMToSamples(pcm)))
	pace := c.PaceStatus(wpm)
	fillers := CountFillers(transcript)
	level, alert := c.alert(volume, pace, fillers)

	return interview.CoachingFeedback{
		VolumeStatus:   volume,
		PaceStatus:     pace,
		FillerCount:    fillers,
		WordsPerMinute: math.Round(wpm*10) / 10,
		PrimaryAlert:   alert,
		AlertLevel:     level,
	}
}

// AverageWPM is the mean pace over analysed answers.
func (c *Coach) AverageWPM() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.wpm) == 0 {
		return 0
	}
	var sum float64
	for _, v := range c.wpm {
		sum += v
	}
	return sum / float64(len(c.wpm))
}

// Reset forgets previous answers.
func (c *Coach) Reset() {
	c.mu.Lock()
	c.wpm = nil
	c.mu.Unlock()
}

// Seed primes the running average with paces from earlier answers.
func (c *Coach) Seed(wpm []float64) {
	c.mu.Lock()
	c.wpm = append([]float64(nil), wpm...)
	c.mu.Unlock()
}

// PaceStatus classifies words per minute. 0 means nothing was measured.
func (c *Coach) PaceStatus(wpm float64) string {
	switch {
	case wpm <= 0:
		return StatusOK
	case wpm < c.t.MinWPM:
		return StatusTooSlow
	case wpm > c.t.MaxWPM:
		return StatusTooFast
	default:
		return StatusOK
	}
}

// VolumeStatus classifies a normalised RMS level.
func (c *Coach) VolumeStatus(rms float64) string {
	switch {
	case rms < c.t.MinVolume:
		return StatusTooQuiet
	case rms > c.t.MaxVolume:
		return StatusTooLoud
	default:
		return StatusOK
	}
}

func (c *Coach) alert(volume, pace string, fillers int) (interview.AlertLevel, string) {
	switch {
	case volume == StatusTooQuiet:
		return interview.AlertCritical, "Speak up, you are hard to hear"
	case volume == StatusTooLoud:
		return interview.AlertCritical, "Lower your voice a little"
	case fillers >= c.t.FillerCritical:
		return interview.AlertCritical, "Too many filler words, pause instead"
	case pace == StatusTooFast:
		return interview.AlertWarning, "Slow down"
	case pace == StatusTooSlow:
		return interview.AlertWarning, "Pick up the pace"
	case fillers >= c.t.FillerWarning:
		return interview.AlertWarning, "Watch the filler words"
	default:
		return interview.AlertOK, ""
	}
}

// WordsPerMinute returns 0 for empty input or zero duration.
func WordsPerMinute(words int, minutes float64) float64 {
	if words == 0 || minutes <= 0 {
		return 0
	}
	return float64(words) / minutes
}

// RMS of 16-bit samples normalised to [0,1].
func RMS(samples []int) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s) / 32768
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

var _ interview.Coach = (*Coach)(nil)
