package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	notifyService   = "org.freedesktop.Notifications"
	notifyPath      = "/org/freedesktop/Notifications"
	notifyInterface = "org.freedesktop.Notifications.Notify"

	urgencyCritical = byte(2)
)

// busNotifier talks to the session's notification daemon. It remembers the
// daemon-assigned ID per tag so a repeat delivery replaces the banner
// already on screen.
type busNotifier struct {
	conn *dbus.Conn

	mu       sync.Mutex
	replaces map[string]uint32
}

func newBusNotifier() (*busNotifier, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return &busNotifier{conn: conn, replaces: make(map[string]uint32)}, nil
}

func (b *busNotifier) Deliver(ctx context.Context, n Notification) error {
	b.mu.Lock()
	replacesID := b.replaces[n.Tag]
	b.mu.Unlock()

	hints := map[string]dbus.Variant{}
	if n.RequireInteraction {
		hints["urgency"] = dbus.MakeVariant(urgencyCritical)
		hints["resident"] = dbus.MakeVariant(true)
	}

	// expire timeout: 0 means never expire, -1 means daemon default
	timeout := int32(-1)
	if n.RequireInteraction {
		timeout = 0
	}

	obj := b.conn.Object(notifyService, notifyPath)
	call := obj.CallWithContext(ctx, notifyInterface, 0,
		"driply", replacesID, n.Icon, n.Title, n.Body, []string{}, hints, timeout)
	if call.Err != nil {
		return fmt.Errorf("dbus notify: %w", call.Err)
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return fmt.Errorf("dbus notify reply: %w", err)
	}

	if n.Tag != "" {
		b.mu.Lock()
		b.replaces[n.Tag] = id
		b.mu.Unlock()
	}
	return nil
}
