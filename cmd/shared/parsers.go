package shared

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"dominicbreuker/netserve/pkg/config"
)

var transportRe = regexp.MustCompile(`^(tcp|ws|udp)://(\[[0-9A-Fa-f:.%a-zA-Z]*\]|[^:\[\]]*):(\d+)$`)

// ParseTransport parses a transport string in the format "protocol://host:port"
// where protocol is one of tcp, ws or udp. The host can be empty or "*" to
// bind to all interfaces, and IPv6 hosts must be bracketed. Port 0 is
// allowed and leaves the choice to the OS.
func ParseTransport(s string) (proto config.Protocol, host string, port int, err error) {
	matches := transportRe.FindStringSubmatch(s)
	if len(matches) != 4 {
		err = parsingError(s)
		return
	}

	switch matches[1] {
	case "tcp":
		proto = config.ProtoTCP
	case "ws":
		proto = config.ProtoWS
	case "udp":
		proto = config.ProtoUDP
	}

	host = strings.TrimSuffix(strings.TrimPrefix(matches[2], "["), "]")
	if host == "*" { // also counts as all interfaces
		host = ""
	}

	port, err = strconv.Atoi(matches[3])
	if err != nil || port < 0 || port > 65535 {
		err = parsingError(s)
		return
	}

	return
}

func parsingError(s string) error {
	return fmt.Errorf("parsing %s: format should be 'protocol://host:port', where protocol = tcp|ws|udp", s)
}
