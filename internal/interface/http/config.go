package httpservice

import (
	"fmt"
	"net"
	"strconv"
)

type Config struct {
	Host string
	Port uint32
}

func (c Config) Validate() error {
	if len(c.Host) <= 0 {
		return fmt.Errorf("missing host")
	}
	if net.ParseIP(c.Host) == nil && c.Host != "localhost" {
		return fmt.Errorf("invalid host %s, must be an ip address or localhost", c.Host)
	}

	lis, err := net.Listen("tcp", c.address())
	if err != nil {
		return fmt.Errorf("invalid port: %s", err)
	}
	// nolint:all
	defer lis.Close()
	return nil
}

func (c Config) address() string {
	return net.JoinHostPort(c.Host, strconv.FormatUint(uint64(c.Port), 10))
}
