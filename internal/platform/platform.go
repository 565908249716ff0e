// Package platform sends desktop notifications through the host's
// notification service.
package platform

import (
	"strings"
	"time"
)

// DefaultAppName identifies the sender to the notification service.
const DefaultAppName = "Pixshop"

// Options configures how a notification is displayed on the host platform.
type Options struct {
	// AppName overrides DefaultAppName.
	AppName string
	// IconPath, when non-empty, points to an image file shown with the
	// notification where supported.
	IconPath string
	// Expire is how long the notification stays visible. Zero leaves it to
	// the notification service.
	Expire time.Duration
}

func (o Options) appName() string {
	if n := strings.TrimSpace(o.AppName); n != "" {
		return n
	}
	return DefaultAppName
}
