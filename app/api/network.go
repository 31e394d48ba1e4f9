package api

import (
	"fmt"
	"net"
)

// lanBaseURL returns http://<first non-loopback IPv4>:port, so other devices
// on the network can reach the dashboard. Falls back to localhost.
func lanBaseURL(port string) string {
	return fmt.Sprintf("http://%s:%s", lanAddress(), port)
}

func lanAddress() string {
	interfaces, err := net.Interfaces()
	if err != nil {
		return "localhost"
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			if ip4 := ipNet.IP.To4(); ip4 != nil && !ip4.IsLoopback() {
				return ip4.String()
			}
		}
	}

	return "localhost"
}
