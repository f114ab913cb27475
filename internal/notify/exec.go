package notify

import (
	"context"
	"fmt"
	"os/exec"
)

// execNotifier shells out to notify-send when no session bus is reachable.
type execNotifier struct {
	path string
}

func newExecNotifier() (*execNotifier, error) {
	path, err := exec.LookPath("notify-send")
	if err != nil {
		return nil, fmt.Errorf("locate notify-send: %w", err)
	}
	return &execNotifier{path: path}, nil
}

func (e *execNotifier) Deliver(ctx context.Context, n Notification) error {
	cmd := exec.CommandContext(ctx, e.path, buildArgs(n)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("notify-send: %w: %s", err, out)
	}
	return nil
}

func buildArgs(n Notification) []string {
	args := []string{"--app-name=driply"}
	if n.Icon != "" {
		args = append(args, "--icon="+n.Icon)
	}
	if n.Tag != "" {
		// Stacking hint honored by most daemons; harmless elsewhere.
		args = append(args, "--hint=string:x-canonical-private-synchronous:"+n.Tag)
	}
	if n.RequireInteraction {
		args = append(args, "--urgency=critical", "--expire-time=0")
	}
	args = append(args, n.Title, n.Body)
	return args
}
