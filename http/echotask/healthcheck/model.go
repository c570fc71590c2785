package healthcheck

import "github.com/zircuit-labs/zkr-chromelogger/version"

type (
	HealthCheck struct {
		PingTime string `json:"pingTime"`
		Protocol string `json:"chromeLoggerProtocol"`
	}
)

func NewHealthCheck(pingTime string) *HealthCheck {
	return &HealthCheck{PingTime: pingTime, Protocol: version.Protocol}
}
