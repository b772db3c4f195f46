package promptunlocker

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/waveportal/waved/internal/core/ports"
	"golang.org/x/term"
)

type readPasswordFunc func(fd int) ([]byte, error)

type readResult struct {
	password []byte
	err      error
}

type service struct {
	fd           int
	out          io.Writer
	readPassword readPasswordFunc

	// one prompt at a time, and at most one goroutine reading fd.
	sem     chan struct{}
	lock    *sync.Mutex
	pending chan readResult
}

// NewService returns an unlocker that asks for the keystore password on the
// terminal attached to stdin.
func NewService() (ports.Unlocker, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("stdin is not a terminal, cannot prompt for password")
	}
	return newService(fd, os.Stdout, term.ReadPassword), nil
}

func newService(fd int, out io.Writer, readPassword readPasswordFunc) *service {
	return &service{
		fd:           fd,
		out:          out,
		readPassword: readPassword,
		sem:          make(chan struct{}, 1),
		lock:         &sync.Mutex{},
	}
}

// GetPassword prompts for the password. A canceled prompt leaves its read
// in flight and the next call waits on that same read.
func (s *service) GetPassword(ctx context.Context) (string, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-s.sem }()

	fmt.Fprint(s.out, "unlock your keystore with password: ")
	resultCh := s.read()

	select {
	case <-ctx.Done():
		fmt.Fprintln(s.out)
		return "", ctx.Err()
	case res := <-resultCh:
		s.lock.Lock()
		s.pending = nil
		s.lock.Unlock()

		fmt.Fprintln(s.out) // new line
		if res.err != nil {
			return "", res.err
		}
		if len(res.password) <= 0 {
			return "", fmt.Errorf("missing password")
		}
		return string(res.password), nil
	}
}

func (s *service) read() <-chan readResult {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.pending != nil {
		return s.pending
	}

	resultCh := make(chan readResult, 1)
	s.pending = resultCh
	go func() {
		password, err := s.readPassword(s.fd)
		resultCh <- readResult{password, err}
	}()
	return resultCh
}
