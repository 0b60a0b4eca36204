package ingestor

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/GabrielNunesIT/discordlog/internal/config"
	"github.com/GabrielNunesIT/discordlog/internal/model"
)

// UDPListenerFactory creates a UDP connection.
type UDPListenerFactory func(network, address string) (net.PacketConn, error)

// TCPListenerFactory creates a TCP listener.
type TCPListenerFactory func(network, address string) (net.Listener, error)

// SyslogOption configures the SyslogIngestor.
type SyslogOption func(*SyslogIngestor)

// WithUDPListenerFactory sets a custom UDP listener factory.
func WithUDPListenerFactory(f UDPListenerFactory) SyslogOption {
	return func(s *SyslogIngestor) {
		s.udpFactory = f
	}
}

// WithTCPListenerFactory sets a custom TCP listener factory.
func WithTCPListenerFactory(f TCPListenerFactory) SyslogOption {
	return func(s *SyslogIngestor) {
		s.tcpFactory = f
	}
}

// SyslogIngestor receives RFC 3164 and RFC 5424 messages over UDP, or over
// TCP with newline or octet-counted framing (RFC 6587).
type SyslogIngestor struct {
	cfg        config.SyslogSourceConfig
	name       string
	udpFactory UDPListenerFactory
	tcpFactory TCPListenerFactory
	logger     zerolog.Logger
}

// NewSyslogIngestor creates a new syslog ingestor.
func NewSyslogIngestor(cfg config.SyslogSourceConfig, log zerolog.Logger, opts ...SyslogOption) *SyslogIngestor {
	s := &SyslogIngestor{
		cfg:    cfg,
		name:   "syslog",
		logger: log.With().Str("ingestor", "syslog").Logger(),
	}

	// Default UDP factory
	s.udpFactory = func(network, address string) (net.PacketConn, error) {
		addr, err := net.ResolveUDPAddr(network, address)
		if err != nil {
			return nil, err
		}
		return net.ListenUDP(network, addr)
	}

	// Default TCP factory
	s.tcpFactory = net.Listen

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the ingestor identifier.
func (s *SyslogIngestor) Name() string {
	return s.name
}

// Start begins listening for syslog messages.
func (s *SyslogIngestor) Start(ctx context.Context, out chan<- *model.LogEntry) error {
	defer close(out)

	switch strings.ToLower(s.cfg.Protocol) {
	case "udp":
		return s.startUDP(ctx, out)
	case "tcp":
		return s.startTCP(ctx, out)
	default:
		return fmt.Errorf("unsupported syslog protocol: %s", s.cfg.Protocol)
	}
}

// startUDP listens for syslog messages over UDP.
func (s *SyslogIngestor) startUDP(ctx context.Context, out chan<- *model.LogEntry) error {
	conn, err := s.udpFactory("udp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("listening on UDP: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	s.logger.Info().Str("address", s.cfg.Address).Msg("listening for syslog over UDP")

	buf := make([]byte, 65535) // Max UDP packet size
	for {
		n, remoteAddr, err := conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				if errors.Is(err, net.ErrClosed) {
					return err
				}
				s.logger.Debug().Err(err).Msg("udp read failed")
				continue
			}
		}

		message := bytes.Clone(bytes.TrimRight(buf[:n], "\r\n"))

		select {
		case out <- s.entry(message, remoteAddr.String()):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// startTCP listens for syslog messages over TCP.
func (s *SyslogIngestor) startTCP(ctx context.Context, out chan<- *model.LogEntry) error {
	listener, err := s.tcpFactory("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("listening on TCP: %w", err)
	}
	defer listener.Close()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info().Str("address", s.cfg.Address).Msg("listening for syslog over TCP")

	// Connections must finish before Start closes out.
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				if errors.Is(err, net.ErrClosed) {
					return err
				}
				s.logger.Debug().Err(err).Msg("tcp accept failed")
				continue
			}
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleTCPConnection(ctx, conn, out)
		}()
	}
}

// handleTCPConnection reads syslog messages from a TCP connection.
func (s *SyslogIngestor) handleTCPConnection(ctx context.Context, conn net.Conn, out chan<- *model.LogEntry) {
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	remoteAddr := conn.RemoteAddr().String()
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	scanner.Split(syslogFrames)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		frame := bytes.TrimRight(scanner.Bytes(), "\r\n")
		if len(frame) == 0 {
			continue
		}
		raw := make([]byte, len(frame))
		copy(raw, frame)

		select {
		case out <- s.entry(raw, remoteAddr):
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Debug().Err(err).Str("remote_addr", remoteAddr).Msg("dropping syslog connection")
	}
}

func (s *SyslogIngestor) entry(raw []byte, remoteAddr string) *model.LogEntry {
	entry := model.NewLogEntry(s.name, raw)
	entry.Metadata["remote_addr"] = remoteAddr
	parseSyslogHeader(entry)
	return entry
}
