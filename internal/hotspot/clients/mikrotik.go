package clients

import (
	"fmt"
	"net"
	"time"

	"github.com/go-routeros/routeros/v3"
	"go.uber.org/zap"
)

// MikrotikSession implements Session over the RouterOS binary API.
type MikrotikSession struct {
	client *routeros.Client
	addr   string
}

// DialMikrotik opens and authenticates a RouterOS API session bounded by
// the connection timeout. The timeout covers both the TCP dial and the
// login exchange.
func DialMikrotik(addr, username, password string, timeout time.Duration) (Session, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("mikrotik dial %s: %w", addr, err)
	}

	// Bound the login exchange as well; cleared once authenticated.
	_ = conn.SetDeadline(time.Now().Add(timeout))

	client, err := routeros.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("mikrotik client %s: %w", addr, err)
	}

	if err := client.Login(username, password); err != nil {
		client.Close()
		return nil, fmt.Errorf("mikrotik login %s: %w", addr, err)
	}

	_ = conn.SetDeadline(time.Time{})

	zap.L().Info("connected to Mikrotik RouterOS",
		zap.String("addr", addr),
	)

	return &MikrotikSession{client: client, addr: addr}, nil
}

// RunArgs executes a RouterOS API sentence.
func (s *MikrotikSession) RunArgs(args []string) (*routeros.Reply, error) {
	return s.client.RunArgs(args)
}

// Close closes the connection to Mikrotik RouterOS.
func (s *MikrotikSession) Close() error {
	if s.client != nil {
		err := s.client.Close()
		zap.L().Info("Mikrotik connection closed", zap.String("addr", s.addr))
		return err
	}
	return nil
}
