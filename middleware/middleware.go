package middleware

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/wneessen/go-mail/smtp"
	"golang.org/x/oauth2"

	"github.com/shandysiswandi/courier"
	"github.com/shandysiswandi/courier/transport"
)

var (
	// ErrStartTLSUnsupported is returned when the connection cannot be
	// upgraded to TLS in place.
	ErrStartTLSUnsupported = errors.New("middleware: connection does not support STARTTLS")
	// ErrAuthUnsupported is returned when the connection does not accept
	// SMTP AUTH.
	ErrAuthUnsupported = errors.New("middleware: connection does not support SMTP AUTH")
)

// StartTLS upgrades the connection to TLS in place. A nil cfg lets the
// transport pick its configured or minimal TLS settings.
func StartTLS(cfg *tls.Config) courier.Middleware {
	return func(_ context.Context, conn transport.Client) error {
		up, ok := conn.(transport.StartTLSer)
		if !ok {
			return ErrStartTLSUnsupported
		}
		return up.StartTLS(cfg)
	}
}

// Auth authenticates the connection with the given SMTP AUTH mechanism.
func Auth(a smtp.Auth) courier.Middleware {
	return func(_ context.Context, conn transport.Client) error {
		au, ok := conn.(transport.Authenticator)
		if !ok {
			return ErrAuthUnsupported
		}
		return au.Auth(a)
	}
}

// Plain authenticates with AUTH PLAIN. The session must already be
// encrypted, so register StartTLS first unless the dialer uses implicit TLS.
func Plain(identity, username, password, host string) courier.Middleware {
	return Auth(smtp.PlainAuth(identity, username, password, host, false))
}

// Login authenticates with AUTH LOGIN. Like Plain it requires an encrypted
// session.
func Login(username, password, host string) courier.Middleware {
	return Auth(smtp.LoginAuth(username, password, host, false))
}

// CRAMMD5 authenticates with AUTH CRAM-MD5.
func CRAMMD5(username, secret string) courier.Middleware {
	return Auth(smtp.CRAMMD5Auth(username, secret))
}

// XOAuth2 authenticates with AUTH XOAUTH2, fetching a fresh access token
// from src each time a connection is prepared.
func XOAuth2(username string, src oauth2.TokenSource) courier.Middleware {
	return func(_ context.Context, conn transport.Client) error {
		au, ok := conn.(transport.Authenticator)
		if !ok {
			return ErrAuthUnsupported
		}
		tok, err := src.Token()
		if err != nil {
			return fmt.Errorf("middleware: fetch oauth2 token: %w", err)
		}
		return au.Auth(smtp.XOAuth2Auth(username, tok.AccessToken))
	}
}
