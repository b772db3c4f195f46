package envunlocker

import (
	"context"
	"fmt"
	"strings"

	"github.com/waveportal/waved/internal/core/ports"
)

type service struct {
	password string
}

// NewService serves the keystore password taken from WAVE_UNLOCKER_PASSWORD.
// Values loaded from a .env file written on windows may end with \r.
func NewService(password string) (ports.Unlocker, error) {
	password = strings.TrimRight(password, "\r\n")
	if len(password) <= 0 {
		return nil, fmt.Errorf("missing keystore password in env")
	}
	return &service{password}, nil
}

func (s *service) GetPassword(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.password, nil
}
