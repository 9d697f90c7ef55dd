package speech

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var (
	ErrEmptyAudio = errors.New("empty audio")
	ErrEmptyText  = errors.New("empty text")
)

// Clip is a synthesized or stored piece of audio.
type Clip struct {
	Data        []byte
	ContentType string
}

// Audio is decoded mono PCM.
type Audio struct {
	Samples    []int
	SampleRate int
}

// Duration of the decoded audio.
func (a Audio) Duration() time.Duration {
	return PCMDuration(len(a.Samples)*2, a.SampleRate)
}

// PCM re-encodes the samples as 16-bit little-endian bytes.
func (a Audio) PCM() []byte {
	return SamplesToPCM(a.Samples)
}

// PCMDuration is the play time of n bytes of 16-bit mono PCM.
func PCMDuration(n, sampleRate int) time.Duration {
	if sampleRate <= 0 || n <= 0 {
		return 0
	}
	samples := time.Duration(n / 2)
	return samples * time.Second / time.Duration(sampleRate)
}

// PCMToSamples reads 16-bit little-endian samples; a trailing odd byte is ignored.
func PCMToSamples(pcm []byte) []int {
	out := make([]int, len(pcm)/2)
	for i := range out {
		out[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	return out
}

// SamplesToPCM writes samples as 16-bit little-endian, clipping to int16 range.
func SamplesToPCM(samples []int) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 32767 {
			s = 32767
		} else if s < -32768 {
			s = -32768
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(s)))
	}
	return out
}

// DecodeWAV decodes a PCM WAV file. Multi-channel input is downmixed by taking the first channel.
func DecodeWAV(data []byte) (Audio, error) {
	if len(data) == 0 {
		return Audio{}, ErrEmptyAudio
	}
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return Audio{}, fmt.Errorf("decode wav: invalid file")
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return Audio{}, fmt.Errorf("decode wav: %w", err)
	}

	channels := int(d.NumChans)
	if channels <= 1 {
		return Audio{Samples: buf.Data, SampleRate: int(d.SampleRate)}, nil
	}
	mono := make([]int, 0, len(buf.Data)/channels)
	for i := 0; i < len(buf.Data); i += channels {
		mono = append(mono, buf.Data[i])
	}
	return Audio{Samples: mono, SampleRate: int(d.SampleRate)}, nil
}

// WriteWAV encodes 16-bit mono PCM as a WAV file into w.
func WriteWAV(w io.WriteSeeker, pcm []byte, sampleRate int) error {
	if len(pcm) < 2 {
		return ErrEmptyAudio
	}
	enc := wav.NewEncoder(w, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           PCMToSamples(pcm),
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	return enc.Close()
}
