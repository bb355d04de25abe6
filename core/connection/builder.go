package connection

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"
)

// Builder configures an outbound connection. It is the transmit-side
// counterpart of the accept loop: protocols build their client transports
// on top of the net.Conn it produces.
type Builder struct {
	host      string
	port      int
	useTLS    bool
	tlsConfig *tls.Config
	timeout   time.Duration
}

// NewBuilder starts a builder for the given host and port.
func NewBuilder(host string, port int) *Builder {
	return &Builder{host: host, port: port, timeout: 10 * time.Second}
}

// TLS toggles TLS on the dialed connection.
func (b *Builder) TLS(enabled bool) *Builder {
	b.useTLS = enabled
	return b
}

// TLSConfig sets a custom TLS configuration, implying TLS(true).
func (b *Builder) TLSConfig(cfg *tls.Config) *Builder {
	b.tlsConfig = cfg
	b.useTLS = true
	return b
}

// Timeout bounds the dial, handshake included.
func (b *Builder) Timeout(d time.Duration) *Builder {
	b.timeout = d
	return b
}

// Address renders the dial target.
func (b *Builder) Address() string {
	return net.JoinHostPort(b.host, fmt.Sprintf("%d", b.port))
}

// Connect dials the configured endpoint, performing the TLS handshake
// when enabled.
func (b *Builder) Connect(ctx context.Context) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: b.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", b.Address())
	if err != nil {
		return nil, fmt.Errorf("connection: dial %s: %w", b.Address(), err)
	}
	if !b.useTLS {
		return conn, nil
	}

	cfg := b.tlsConfig
	if cfg == nil {
		cfg = &tls.Config{ServerName: b.host}
	} else if cfg.ServerName == "" {
		cfg = cfg.Clone()
		cfg.ServerName = b.host
	}
	tlsConn := tls.Client(conn, cfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connection: tls handshake with %s: %w", b.Address(), err)
	}
	return tlsConn, nil
}
