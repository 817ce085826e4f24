// Package discovery announces drawing servers on the local network over
// mDNS and finds the ones other hosts announce.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the DNS-SD service type drawing servers register under.
const ServiceType = "_drawsync._tcp"

// Advertiser keeps a service record published until Shutdown.
type Advertiser struct {
	server *mdns.Server
}

// Advertise publishes a drawing server listening on port. An empty
// instance defaults to the host name.
func Advertise(instance string, port int) (*Advertiser, error) {
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("advertise: invalid port %d", port)
	}
	if instance == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("advertise: hostname: %w", err)
		}
		instance = host
	}

	service, err := mdns.NewMDNSService(instance, ServiceType, "", "", port, nil, []string{"drawsync", "path=/ws"})
	if err != nil {
		return nil, fmt.Errorf("advertise: service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("advertise: server: %w", err)
	}
	return &Advertiser{server: server}, nil
}

// Shutdown withdraws the record.
func (a *Advertiser) Shutdown() error {
	if a == nil || a.server == nil {
		return nil
	}
	return a.server.Shutdown()
}

// Peer is a drawing server found on the network.
type Peer struct {
	Instance string
	Addr     string
}

// Browse queries the network for drawing servers for up to timeout and
// returns what answered.
func Browse(ctx context.Context, timeout time.Duration) ([]Peer, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout

	errCh := make(chan error, 1)
	go func() {
		errCh <- mdns.Query(params)
		close(entries)
	}()

	var peers []Peer
	seen := make(map[string]struct{})
	for {
		select {
		case e, ok := <-entries:
			if !ok {
				return peers, <-errCh
			}
			addr, ok := peerAddr(e)
			if !ok {
				continue
			}
			if _, dup := seen[addr]; dup {
				continue
			}
			seen[addr] = struct{}{}
			peers = append(peers, Peer{Instance: e.Name, Addr: addr})
		case <-ctx.Done():
			go func() {
				for range entries {
				}
			}()
			return peers, ctx.Err()
		}
	}
}

func peerAddr(e *mdns.ServiceEntry) (string, bool) {
	if e == nil || e.AddrV4 == nil || e.Port == 0 {
		return "", false
	}
	return net.JoinHostPort(e.AddrV4.String(), strconv.Itoa(e.Port)), true
}

// PortOf extracts the numeric port from a listen address such as ":3001".
func PortOf(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return 0, fmt.Errorf("port %q: %w", p, err)
	}
	if port <= 0 {
		return 0, errors.New("listen address has no fixed port")
	}
	return port, nil
}
