package serve

import (
	"fmt"
	"net"
)

// localIPs returns the loopback addresses plus every non-loopback IPv4
// address of the machine.
func localIPs() []net.IP {
	ips := []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("::1")}
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ips
	}
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
			ips = append(ips, ipnet.IP)
		}
	}
	return ips
}

// remoteURLs lists where the server can be reached. A wildcard host expands
// to every local IPv4 address, so the last url is the one to hand a phone.
func remoteURLs(scheme, host string, port int) []string {
	if host != "" && host != "0.0.0.0" && host != "::" {
		return []string{fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(host, fmt.Sprint(port)))}
	}
	var urls []string
	for _, ip := range localIPs() {
		if ip.To4() == nil {
			continue
		}
		urls = append(urls, fmt.Sprintf("%s://%s:%d", scheme, ip, port))
	}
	return urls
}
