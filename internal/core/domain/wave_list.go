package domain

import "sync"

// WaveList is the ordered list of waves shown to the user. Bulk loads replace
// it wholesale, live events append to its tail. Entries are not deduplicated.
type WaveList struct {
	lock  *sync.RWMutex
	waves []Wave
}

func NewWaveList() *WaveList {
	return &WaveList{&sync.RWMutex{}, make([]Wave, 0)}
}

func (l *WaveList) ReplaceAll(waves []Wave) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.waves = append(make([]Wave, 0, len(waves)), waves...)
}

func (l *WaveList) Append(wave Wave) int {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.waves = append(l.waves, wave)
	return len(l.waves)
}

func (l *WaveList) Len() int {
	l.lock.RLock()
	defer l.lock.RUnlock()

	return len(l.waves)
}

// Snapshot returns a copy of the list, safe to use after further mutations.
func (l *WaveList) Snapshot() []Wave {
	l.lock.RLock()
	defer l.lock.RUnlock()

	return append(make([]Wave, 0, len(l.waves)), l.waves...)
}
