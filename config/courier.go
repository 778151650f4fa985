package config

import (
	"github.com/shandysiswandi/courier"
	"github.com/shandysiswandi/courier/transport"
)

// NewCourier assembles a Courier with an SMTP dialer from configuration.
//
// Keys read:
//
//	courier.host          relay hostname (required)
//	courier.port          relay port
//	smtp.helo             EHLO/HELO hostname
//	smtp.dial_timeout     TCP dial timeout in seconds
//	smtp.dial_attempts    total TCP dial attempts
//	smtp.ssl              dial implicit TLS (SMTPS)
func NewCourier(cfg Config) (*courier.Courier, error) {
	dialer := transport.NewSMTP(transport.Options{
		HELO:         cfg.GetString("smtp.helo"),
		DialTimeout:  cfg.GetSecond("smtp.dial_timeout"),
		DialAttempts: cfg.GetUint64("smtp.dial_attempts"),
		SSL:          cfg.GetBool("smtp.ssl"),
	})

	return courier.New(
		cfg.GetString("courier.host"),
		cfg.GetInt("courier.port"),
		courier.WithDialer(dialer),
	)
}
