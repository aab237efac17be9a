package platform

import (
	"context"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/sadopc/tminus/internal/alert"
)

const (
	notifyDest  = "org.freedesktop.Notifications"
	notifyPath  = dbus.ObjectPath("/org/freedesktop/Notifications")
	notifyIface = "org.freedesktop.Notifications"
)

// DBusNotifier posts desktop notifications over the session bus.
// Permission is granted when a notification server answers.
type DBusNotifier struct {
	appName string

	mu      sync.Mutex
	conn    *dbus.Conn
	granted bool
}

func NewDBusNotifier(appName string) *DBusNotifier {
	return &DBusNotifier{appName: appName}
}

func (n *DBusNotifier) RequestPermission(ctx context.Context) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.granted {
		return true, nil
	}
	if n.conn == nil {
		conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
		if err != nil {
			return false, fmt.Errorf("connect session bus: %w", err)
		}
		n.conn = conn
	}
	var caps []string
	obj := n.conn.Object(notifyDest, notifyPath)
	if err := obj.CallWithContext(ctx, notifyIface+".GetCapabilities", 0).Store(&caps); err != nil {
		return false, fmt.Errorf("query notification server: %w", err)
	}
	n.granted = true
	return true, nil
}

func (n *DBusNotifier) ScheduleImmediate(ctx context.Context, note alert.Notification) error {
	n.mu.Lock()
	conn, granted := n.conn, n.granted
	n.mu.Unlock()
	if !granted || conn == nil {
		return alert.ErrPermissionDenied
	}

	var id uint32
	obj := conn.Object(notifyDest, notifyPath)
	call := obj.CallWithContext(ctx, notifyIface+".Notify", 0,
		n.appName,
		uint32(0),
		"alarm-symbolic",
		note.Title,
		note.Body,
		[]string{},
		notificationHints(note),
		int32(-1),
	)
	if err := call.Store(&id); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

func notificationHints(note alert.Notification) map[string]dbus.Variant {
	hints := map[string]dbus.Variant{
		"urgency":  dbus.MakeVariant(byte(2)),
		"category": dbus.MakeVariant("x-tminus.timer"),
	}
	if note.Sound {
		hints["sound-name"] = dbus.MakeVariant("alarm-clock-elapsed")
	} else {
		hints["suppress-sound"] = dbus.MakeVariant(true)
	}
	return hints
}

// Close drops the bus connection.
func (n *DBusNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn == nil {
		return nil
	}
	err := n.conn.Close()
	n.conn = nil
	n.granted = false
	return err
}
