// Package ingest receives raw NMEA sentences from live sources: a UDP socket
// (the de facto port for NMEA over UDP is 10110) or a packet capture replay.
// Sentences are handed to a caller-supplied handler in arrival order; parsing
// and conversion stay out of this package.
package ingest

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/banshee-data/trackframe/internal/monitoring"
)

// SentenceHandler receives one raw sentence line, CRLF stripped.
type SentenceHandler func(line string)

// LineStats tracks datagram and sentence counters for periodic logging.
type LineStats struct {
	mu        sync.Mutex
	datagrams int
	bytes     int
	sentences int
}

func (s *LineStats) AddDatagram(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.datagrams++
	s.bytes += n
}

func (s *LineStats) AddSentences(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sentences += n
}

// Snapshot returns the current counters.
func (s *LineStats) Snapshot() (datagrams, bytes, sentences int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.datagrams, s.bytes, s.sentences
}

func (s *LineStats) logStats() {
	datagrams, bytes, sentences := s.Snapshot()
	monitoring.Logf("UDP ingest: %d datagrams (%d bytes), %d sentences", datagrams, bytes, sentences)
}

// UDPListenerConfig contains configuration options for the UDP listener.
type UDPListenerConfig struct {
	Address     string
	RcvBuf      int
	LogInterval time.Duration
	Handler     SentenceHandler
	// SocketFactory overrides socket creation, for tests. Nil means real
	// sockets.
	SocketFactory UDPSocketFactory
}

// UDPListener receives NMEA-over-UDP datagrams and feeds each contained
// sentence to the configured handler.
type UDPListener struct {
	address     string
	rcvBuf      int
	logInterval time.Duration
	handler     SentenceHandler
	factory     UDPSocketFactory
	stats       *LineStats
}

// NewUDPListener creates a new UDP listener with the provided configuration.
func NewUDPListener(config UDPListenerConfig) *UDPListener {
	factory := config.SocketFactory
	if factory == nil {
		factory = &RealUDPSocketFactory{}
	}
	logInterval := config.LogInterval
	if logInterval == 0 {
		logInterval = time.Minute
	}
	return &UDPListener{
		address:     config.Address,
		rcvBuf:      config.RcvBuf,
		logInterval: logInterval,
		handler:     config.Handler,
		factory:     factory,
		stats:       &LineStats{},
	}
}

// Stats exposes the listener's counters.
func (l *UDPListener) Stats() *LineStats { return l.stats }

// Start begins listening for datagrams and blocks until the context is
// cancelled or the socket fails. Each datagram may carry several sentences;
// all are delivered in order.
func (l *UDPListener) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", l.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := l.factory.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address: %w", err)
	}
	defer conn.Close()

	if l.rcvBuf > 0 {
		if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
			monitoring.Logf("failed to set UDP receive buffer size to %d: %v", l.rcvBuf, err)
		}
	}

	monitoring.Logf("UDP listener started on %s", conn.LocalAddr())

	go l.startStatsLogging(ctx)

	// NMEA sentences cap at 82 characters; 2048 leaves room for bundled
	// sentences in one datagram.
	buffer := make([]byte, 2048)

	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("UDP listener stopping: %v", ctx.Err())
			return ctx.Err()
		default:
			// Short read deadline so context cancellation is noticed
			// promptly.
			conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))

			n, addr, err := conn.ReadFromUDP(buffer)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					continue
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				monitoring.Logf("UDP read error: %v", err)
				continue
			}

			l.handleDatagram(buffer[:n], addr)
		}
	}
}

func (l *UDPListener) handleDatagram(payload []byte, addr *net.UDPAddr) {
	l.stats.AddDatagram(len(payload))
	lines := splitSentences(payload)
	l.stats.AddSentences(len(lines))
	if l.handler == nil {
		return
	}
	for _, line := range lines {
		l.handler(line)
	}
}

func (l *UDPListener) startStatsLogging(ctx context.Context) {
	ticker := time.NewTicker(l.logInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.stats.logStats()
		}
	}
}

// splitSentences breaks a datagram payload into individual sentence lines,
// dropping blank lines and CR/LF terminators.
func splitSentences(payload []byte) []string {
	var lines []string
	for _, line := range strings.Split(string(payload), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
