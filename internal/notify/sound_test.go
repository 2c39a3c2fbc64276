package notify

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/disruption-desk/internal/model"
)

type fakeRunner struct {
	installed map[string]bool
	calls     [][]string
	fileSeen  bool
	runErr    error
}

func (r *fakeRunner) LookPath(name string) (string, error) {
	if r.installed[name] {
		return "/usr/bin/" + name, nil
	}
	return "", errors.New("not found")
}

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	if len(args) > 0 {
		if _, err := os.Stat(args[len(args)-1]); err == nil {
			r.fileSeen = true
		}
	}
	return nil, r.runErr
}

func TestFrequencyByPriority(t *testing.T) {
	urgent := Frequency(model.PriorityUrgent)
	high := Frequency(model.PriorityHigh)
	medium := Frequency(model.PriorityMedium)

	assert.Greater(t, urgent, high)
	assert.Greater(t, high, medium)
	assert.Equal(t, medium, Frequency("whatever"))
}

func TestToneDecays(t *testing.T) {
	samples := Tone(model.PriorityHigh)
	require.Len(t, samples, int(sampleRate*toneDuration))

	peak := func(s []int16) int {
		m := 0
		for _, v := range s {
			if int(v) > m {
				m = int(v)
			}
			if -int(v) > m {
				m = -int(v)
			}
		}
		return m
	}
	window := sampleRate / 50
	head := peak(samples[:window])
	tail := peak(samples[len(samples)-window:])
	assert.Greater(t, head, tail*5)
}

func TestEncodeWAVHeader(t *testing.T) {
	data := EncodeWAV([]int16{0, 1, -1, 100}, sampleRate)

	require.Len(t, data, 44+8)
	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Equal(t, "data", string(data[36:40]))
	assert.Equal(t, uint32(8), binary.LittleEndian.Uint32(data[40:44]))
	assert.Equal(t, uint32(sampleRate), binary.LittleEndian.Uint32(data[24:28]))
}

func TestSystemSoundFallsBackToBell(t *testing.T) {
	var bell bytes.Buffer
	runner := &fakeRunner{}
	s := NewSystemSound(runner, &bell)

	require.NoError(t, s.Play(model.PriorityUrgent))
	assert.Equal(t, "\a", bell.String())
	assert.Empty(t, runner.calls)
}

func TestSystemSoundUsesFirstInstalledPlayer(t *testing.T) {
	var bell bytes.Buffer
	runner := &fakeRunner{installed: map[string]bool{"aplay": true, "afplay": true}}
	s := NewSystemSound(runner, &bell)

	require.NoError(t, s.Play(model.PriorityMedium))
	require.Len(t, runner.calls, 1)
	assert.Equal(t, "aplay", runner.calls[0][0])
	assert.True(t, runner.fileSeen)
	assert.Empty(t, bell.String())
}

func TestSystemDesktopSend(t *testing.T) {
	runner := &fakeRunner{installed: map[string]bool{"notify-send": true}}
	d := &SystemDesktop{runner: runner, goos: "linux"}

	assert.True(t, d.Available())
	err := d.Send(model.Notification{Title: "Done", Message: "ok", Priority: model.PriorityUrgent})
	require.NoError(t, err)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, "notify-send", runner.calls[0][0])
	assert.Contains(t, runner.calls[0], "--urgency=critical")
}

func TestSystemDesktopUnsupportedOS(t *testing.T) {
	d := &SystemDesktop{runner: &fakeRunner{}, goos: "plan9"}
	assert.False(t, d.Available())
	assert.Error(t, d.Send(model.Notification{}))
}
