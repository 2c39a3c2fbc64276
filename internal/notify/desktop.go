package notify

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/nhle/disruption-desk/internal/model"
)

const commandTimeout = 5 * time.Second

// Runner executes an external program.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
	LookPath(name string) (string, error)
}

// OSRunner runs programs with os/exec.
type OSRunner struct{}

func (OSRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

func (OSRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// SystemDesktop shows notifications with notify-send on Linux and
// osascript on macOS.
type SystemDesktop struct {
	runner Runner
	goos   string
}

// NewSystemDesktop returns a desktop channel for the running OS.
func NewSystemDesktop(runner Runner) *SystemDesktop {
	if runner == nil {
		runner = OSRunner{}
	}
	return &SystemDesktop{runner: runner, goos: runtime.GOOS}
}

func (d *SystemDesktop) binary() string {
	switch d.goos {
	case "linux", "freebsd", "openbsd":
		return "notify-send"
	case "darwin":
		return "osascript"
	default:
		return ""
	}
}

// Available reports whether the platform notifier is installed.
func (d *SystemDesktop) Available() bool {
	bin := d.binary()
	if bin == "" {
		return false
	}
	_, err := d.runner.LookPath(bin)
	return err == nil
}

// Send shows n as a desktop notification.
func (d *SystemDesktop) Send(n model.Notification) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	title := n.Title
	if n.Icon != "" {
		title = n.Icon + " " + title
	}

	var (
		out []byte
		err error
	)
	switch d.binary() {
	case "notify-send":
		out, err = d.runner.Run(ctx, "notify-send",
			"--app-name=disruption-desk",
			"--urgency="+urgency(n.Priority),
			title, n.Message)
	case "osascript":
		script := fmt.Sprintf("display notification %q with title %q", n.Message, title)
		out, err = d.runner.Run(ctx, "osascript", "-e", script)
	default:
		return fmt.Errorf("desktop notifications unsupported on %s", d.goos)
	}
	if err != nil {
		return fmt.Errorf("sending desktop notification: %w: %s", err, out)
	}
	return nil
}

func urgency(p model.Priority) string {
	switch p {
	case model.PriorityUrgent:
		return "critical"
	case model.PriorityHigh:
		return "normal"
	default:
		return "low"
	}
}
