package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    []string
	}{
		{
			name:    "single sentence with CRLF",
			payload: "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47\r\n",
			want:    []string{"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"},
		},
		{
			name:    "bundled sentences in one datagram",
			payload: "$GPGGA,1,2,N,3,E,1,08,0.9,545.4,M,,M,,\r\n$GPRMC,1,A,2,N,3,E,0.0,0.0,010170,,\r\n",
			want: []string{
				"$GPGGA,1,2,N,3,E,1,08,0.9,545.4,M,,M,,",
				"$GPRMC,1,A,2,N,3,E,0.0,0.0,010170,,",
			},
		},
		{
			name:    "bare LF terminators",
			payload: "$GPGLL,4916.45,N,12311.12,W,225444,A\n",
			want:    []string{"$GPGLL,4916.45,N,12311.12,W,225444,A"},
		},
		{
			name:    "blank lines dropped",
			payload: "\r\n\r\n$GPGGA,x\r\n\r\n",
			want:    []string{"$GPGGA,x"},
		},
		{
			name:    "empty payload",
			payload: "",
			want:    nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitSentences([]byte(tt.payload))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("splitSentences() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUDPListenerDeliversSentences(t *testing.T) {
	socket := &MockUDPSocket{
		Packets: [][]byte{
			[]byte("$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47\r\n"),
			[]byte("$GPGSV,3,1,11,03,03,111,00*74\r\n$GPGLL,4916.45,N,12311.12,W,225444,A\r\n"),
		},
	}

	var mu sync.Mutex
	var got []string
	listener := NewUDPListener(UDPListenerConfig{
		Address: "127.0.0.1:10110",
		Handler: func(line string) {
			mu.Lock()
			got = append(got, line)
			mu.Unlock()
		},
		SocketFactory: &MockUDPSocketFactory{Socket: socket},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- listener.Start(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n >= 3 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out: received %d sentences, want 3", n)
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Start() after cancel = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after context cancel")
	}

	want := []string{
		"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47",
		"$GPGSV,3,1,11,03,03,111,00*74",
		"$GPGLL,4916.45,N,12311.12,W,225444,A",
	}
	mu.Lock()
	defer mu.Unlock()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sentences mismatch (-want +got):\n%s", diff)
	}

	datagrams, _, sentences := listener.Stats().Snapshot()
	if datagrams != 2 {
		t.Errorf("datagrams = %d, want 2", datagrams)
	}
	if sentences != 3 {
		t.Errorf("sentences = %d, want 3", sentences)
	}
}

func TestUDPListenerBadAddress(t *testing.T) {
	listener := NewUDPListener(UDPListenerConfig{
		Address:       "not-an-address",
		SocketFactory: &MockUDPSocketFactory{Socket: &MockUDPSocket{}},
	})
	if err := listener.Start(context.Background()); err == nil {
		t.Error("Start() with bad address returned nil error")
	}
}

func TestUDPListenerListenFailure(t *testing.T) {
	listener := NewUDPListener(UDPListenerConfig{
		Address:       "127.0.0.1:10110",
		SocketFactory: &MockUDPSocketFactory{Error: errors.New("port in use")},
	})
	if err := listener.Start(context.Background()); err == nil {
		t.Error("Start() with failing factory returned nil error")
	}
}

func TestReplayPCAPMissingFile(t *testing.T) {
	// Errors both without the pcap tag (stub) and with it (missing file).
	if err := ReplayPCAP(context.Background(), "missing.pcap", 10110, nil); err == nil {
		t.Error("ReplayPCAP() for a missing capture returned nil error")
	}
}
