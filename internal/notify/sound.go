package notify

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/nhle/disruption-desk/internal/model"
)

const (
	sampleRate   = 22050
	toneDuration = 0.3 // seconds
	startGain    = 0.3
	endGain      = 0.01
)

// Frequency returns the cue pitch in Hz for a priority. Unknown
// priorities use the medium pitch.
func Frequency(p model.Priority) float64 {
	switch p {
	case model.PriorityUrgent:
		return 880
	case model.PriorityHigh:
		return 660
	default:
		return 440
	}
}

// Tone synthesizes the cue for a priority as 16-bit mono PCM: a sine
// wave whose amplitude decays exponentially over 300ms.
func Tone(p model.Priority) []int16 {
	freq := Frequency(p)
	n := int(sampleRate * toneDuration)
	samples := make([]int16, n)

	// gain(t) = start * (end/start)^(t/duration)
	ratio := endGain / startGain
	for i := range samples {
		t := float64(i) / sampleRate
		gain := startGain * math.Pow(ratio, t/toneDuration)
		v := gain * math.Sin(2*math.Pi*freq*t)
		samples[i] = int16(v * math.MaxInt16)
	}
	return samples
}

// EncodeWAV wraps 16-bit mono PCM samples in a RIFF/WAVE container.
func EncodeWAV(samples []int16, rate int) []byte {
	dataLen := uint32(len(samples) * 2)

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, 36+dataLen)
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))     // chunk size
	binary.Write(&buf, binary.LittleEndian, uint16(1))      // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1))      // mono
	binary.Write(&buf, binary.LittleEndian, uint32(rate))   // sample rate
	binary.Write(&buf, binary.LittleEndian, uint32(rate*2)) // byte rate
	binary.Write(&buf, binary.LittleEndian, uint16(2))      // block align
	binary.Write(&buf, binary.LittleEndian, uint16(16))     // bits per sample

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataLen)
	binary.Write(&buf, binary.LittleEndian, samples)

	return buf.Bytes()
}

var players = []string{"paplay", "aplay", "afplay"}

// SystemSound plays cues through the first installed system audio
// player, or rings the terminal bell when there is none.
type SystemSound struct {
	runner Runner
	bell   io.Writer
}

// NewSystemSound creates a sound channel. bell defaults to stderr.
func NewSystemSound(runner Runner, bell io.Writer) *SystemSound {
	if runner == nil {
		runner = OSRunner{}
	}
	if bell == nil {
		bell = os.Stderr
	}
	return &SystemSound{runner: runner, bell: bell}
}

// Play plays the cue for p.
func (s *SystemSound) Play(p model.Priority) error {
	player := ""
	for _, name := range players {
		if _, err := s.runner.LookPath(name); err == nil {
			player = name
			break
		}
	}
	if player == "" {
		_, err := io.WriteString(s.bell, "\a")
		return err
	}

	f, err := os.CreateTemp("", "disruption-desk-*.wav")
	if err != nil {
		return fmt.Errorf("creating cue file: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(EncodeWAV(Tone(p), sampleRate)); err != nil {
		f.Close()
		return fmt.Errorf("writing cue file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing cue file: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if out, err := s.runner.Run(ctx, player, f.Name()); err != nil {
		return fmt.Errorf("playing cue with %s: %w: %s", player, err, out)
	}
	return nil
}
