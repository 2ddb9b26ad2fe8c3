//go:build !pcap
// +build !pcap

package ingest

import (
	"context"
	"fmt"
)

// ReplayPCAP is a stub implementation when PCAP support is disabled.
// Build with -tags=pcap to enable capture replay.
func ReplayPCAP(ctx context.Context, pcapFile string, udpPort int, handler SentenceHandler) error {
	return fmt.Errorf("PCAP support not enabled: rebuild with -tags=pcap to enable capture replay")
}
