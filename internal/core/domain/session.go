package domain

import "sync"

// Session tracks which wallet account, if any, is connected. There is no
// logout: once set, the address is only ever replaced by a new connection.
type Session struct {
	lock             *sync.RWMutex
	connectedAddress string
}

func NewSession() *Session {
	return &Session{lock: &sync.RWMutex{}}
}

func (s *Session) Connect(address string) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.connectedAddress = address
}

func (s *Session) ConnectedAddress() (string, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.connectedAddress, len(s.connectedAddress) > 0
}
