package metadata

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/mewkiz/flac"
)

// DurationProbe computes the play length of a file in seconds.
type DurationProbe func(path string) (float64, error)

// DefaultProbes maps lower-case extensions to the decoder able to measure them.
func DefaultProbes() map[string]DurationProbe {
	return map[string]DurationProbe{
		".mp3":  MP3Duration,
		".flac": FLACDuration,
		".wav":  WAVDuration,
	}
}

func probeFor(probes map[string]DurationProbe, path string) DurationProbe {
	return probes[strings.ToLower(filepath.Ext(path))]
}

// MP3Duration decodes frame headers with go-mp3.
func MP3Duration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	d, err := mp3.NewDecoder(f)
	if err != nil {
		return 0, fmt.Errorf("mpeg decode: %w", err)
	}
	if d.SampleRate() <= 0 {
		return 0, fmt.Errorf("mpeg decode: invalid sample rate")
	}

	if d.Length() < 0 {
		return 0, fmt.Errorf("mpeg decode: unknown length")
	}

	// Length is in bytes of 16-bit stereo PCM
	samples := d.Length() / 4
	return float64(samples) / float64(d.SampleRate()), nil
}

// FLACDuration reads STREAMINFO with mewkiz/flac.
func FLACDuration(path string) (float64, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return 0, fmt.Errorf("flac header: %w", err)
	}
	defer stream.Close()

	if stream.Info == nil || stream.Info.SampleRate == 0 {
		return 0, fmt.Errorf("flac header: missing stream info")
	}
	return float64(stream.Info.NSamples) / float64(stream.Info.SampleRate), nil
}

// WAVDuration reads the RIFF header with go-audio/wav.
func WAVDuration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return 0, fmt.Errorf("wav header: invalid format")
	}
	dur, err := d.Duration()
	if err != nil {
		return 0, fmt.Errorf("wav header: %w", err)
	}
	return dur.Seconds(), nil
}
