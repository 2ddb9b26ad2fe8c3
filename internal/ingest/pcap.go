//go:build pcap
// +build pcap

package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/banshee-data/trackframe/internal/monitoring"
)

// ReplayPCAP reads NMEA-over-UDP traffic from a capture file and feeds every
// sentence to the handler in capture order. Only UDP packets on the given
// port are considered. This function is only available when building with the
// 'pcap' build tag.
func ReplayPCAP(ctx context.Context, pcapFile string, udpPort int, handler SentenceHandler) error {
	handle, err := pcap.OpenOffline(pcapFile)
	if err != nil {
		return fmt.Errorf("failed to open PCAP file %s: %w", pcapFile, err)
	}
	defer handle.Close()

	filterStr := fmt.Sprintf("udp port %d", udpPort)
	if err := handle.SetBPFFilter(filterStr); err != nil {
		return fmt.Errorf("failed to set BPF filter %q: %w", filterStr, err)
	}

	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())
	packetCount := 0
	sentenceCount := 0
	startTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("PCAP replay stopping: %v (processed %d packets)", ctx.Err(), packetCount)
			return ctx.Err()
		case packet := <-packetSource.Packets():
			if packet == nil {
				monitoring.Logf("PCAP replay complete: %d packets, %d sentences in %v",
					packetCount, sentenceCount, time.Since(startTime))
				return nil
			}
			packetCount++

			udpLayer := packet.Layer(layers.LayerTypeUDP)
			if udpLayer == nil {
				continue
			}
			udp, ok := udpLayer.(*layers.UDP)
			if !ok {
				continue
			}
			if len(udp.Payload) == 0 {
				continue
			}

			lines := splitSentences(udp.Payload)
			sentenceCount += len(lines)
			if handler != nil {
				for _, line := range lines {
					handler(line)
				}
			}
		}
	}
}
