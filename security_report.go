package goLink

import "time"

// SecurityReport summarizes the protections active on an Engine. Hosts log
// it at startup.
type SecurityReport struct {
	CodeDigits         int
	CodeTTL            time.Duration
	ExpiryActive       bool
	SweeperActive      bool
	RateLimitingActive bool
	RequireDelivery    bool
	EmbedEnabled       bool
	AuditEnabled       bool
	MetricsEnabled     bool
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	return SecurityReport{
		CodeDigits:         e.config.Code.Digits,
		CodeTTL:            e.config.Code.TTL,
		ExpiryActive:       e.config.Code.TTL > 0,
		SweeperActive:      e.sweepStop != nil,
		RateLimitingActive: e.limiter != nil,
		RequireDelivery:    e.config.Notification.RequireDelivery,
		EmbedEnabled:       e.config.Embed.Enabled,
		AuditEnabled:       e.audit != nil,
		MetricsEnabled:     e.metrics.Enabled(),
	}
}
