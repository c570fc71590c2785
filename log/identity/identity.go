// Package identity names the running service instance.
package identity

import (
	"sync"

	"github.com/rs/xid"
)

type Identity struct {
	serviceName string
	instanceID  string
}

var (
	identity = Identity{
		serviceName: "unknown",
		instanceID:  xid.New().String(),
	}
	setServiceNameOnce sync.Once
)

// WhoAmI returns the service name and the instance id of this process.
// The service name defaults to "unknown" until SetServiceName is called.
// The instance id is generated once at startup and never changes.
func WhoAmI() (serviceName, instanceID string) {
	return identity.serviceName, identity.instanceID
}

// SetServiceName sets the service name. Only the first call has any effect.
// Do not set the service name in tests.
func SetServiceName(name string) {
	setServiceNameOnce.Do(func() {
		identity.serviceName = name
	})
}
