package waveportal

import (
	"sync"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	log "github.com/sirupsen/logrus"
	"github.com/waveportal/waved/internal/core/ports"
)

type parseFunc func(l types.Log) (ports.RawWave, error)

type subscription struct {
	sub   event.Subscription
	once  *sync.Once
	quit  chan struct{}
	done  chan struct{}
	errCh chan error
}

// newSubscription first hands the replayed waves to handler and then every
// live log mined after cutoff, if any. Delivery happens on a single
// goroutine so handler sees waves in log order.
func newSubscription(
	sub event.Subscription, logs <-chan types.Log, replayed []ports.RawWave,
	cutoff *uint64, parse parseFunc, handler ports.NewWaveHandler,
) ports.Subscription {
	s := &subscription{
		sub:   sub,
		once:  &sync.Once{},
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
		errCh: make(chan error, 1),
	}
	go s.listen(logs, replayed, cutoff, parse, handler)
	return s
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.quit)
		s.sub.Unsubscribe()
	})
	<-s.done
}

func (s *subscription) Err() <-chan error {
	return s.errCh
}

func (s *subscription) listen(
	logs <-chan types.Log, replayed []ports.RawWave, cutoff *uint64,
	parse parseFunc, handler ports.NewWaveHandler,
) {
	defer close(s.done)
	defer close(s.errCh)

	for _, wave := range replayed {
		select {
		case <-s.quit:
			return
		default:
		}
		handler(wave)
	}

	for {
		select {
		case <-s.quit:
			return
		case err, ok := <-s.sub.Err():
			if ok && err != nil {
				s.errCh <- err
			}
			return
		case l := <-logs:
			if l.Removed {
				log.Debugf("ignoring removed %s log in tx %s", eventNewWave, l.TxHash)
				continue
			}
			if cutoff != nil && l.BlockNumber <= *cutoff {
				continue
			}
			wave, err := parse(l)
			if err != nil {
				log.WithError(err).Warnf("skipping malformed %s log", eventNewWave)
				continue
			}
			handler(wave)
		}
	}
}
