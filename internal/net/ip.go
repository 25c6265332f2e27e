package net

import (
	"net"
)

// GetOutgoingIP finds the address peers on the LAN should use to reach this
// host. No packet is sent; dialing UDP only selects a route.
func GetOutgoingIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return localIPFallback()
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}

// localIPFallback is used on networks without a default route.
func localIPFallback() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}
	for _, address := range addrs {
		if ipnet, ok := address.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
			return ipnet.IP.String()
		}
	}
	return firstIPv4().String()
}
