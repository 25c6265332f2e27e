package net

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service a snapshot server announces.
const ServiceType = "_classboard._tcp"

// Advertise announces a snapshot server on port until the returned server is
// shut down.
func Advertise(port int, info ...string) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}
	if len(info) == 0 {
		info = []string{"ClassBoard"}
	}

	// Explicit IPs keep the record usable when the hostname does not resolve.
	service, err := mdns.NewMDNSService(host, ServiceType, "", "", port, []net.IP{firstIPv4()}, info)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	return server, nil
}

// Browse reports every IPv4 host:port that answers within timeout.
func Browse(timeout time.Duration, found func(addr string)) error {
	entries := make(chan *mdns.ServiceEntry, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range entries {
			if e.AddrV4 == nil || e.Port == 0 {
				continue
			}
			found(fmt.Sprintf("%s:%d", e.AddrV4.String(), e.Port))
		}
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	err := mdns.Query(params)
	close(entries)
	<-done
	if err != nil {
		return fmt.Errorf("mDNS lookup: %w", err)
	}
	return nil
}

// Discover returns the base URL of the first snapshot server found.
func Discover(ctx context.Context, timeout time.Duration) (string, error) {
	if dl, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(dl))
	}
	var first string
	err := Browse(timeout, func(addr string) {
		if first == "" {
			first = addr
		}
	})
	if err != nil {
		return "", err
	}
	if first == "" {
		return "", fmt.Errorf("no %s service answered within %s", ServiceType, timeout)
	}
	return "http://" + first, nil
}

func firstIPv4() net.IP {
	ifaces, _ := net.Interfaces()
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, _ := iface.Addrs()
		for _, a := range addrs {
			if ipnet, ok := a.(*net.IPNet); ok && ipnet.IP.To4() != nil {
				return ipnet.IP.To4()
			}
		}
	}
	return net.IPv4(127, 0, 0, 1)
}
