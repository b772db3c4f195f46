package keystorewallet

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/timshannon/badgerhold/v4"
)

const (
	authorizationStoreDir = "authorizations"
	maxRetries            = 5
)

// authorization records that the user granted the app access to an account.
type authorization struct {
	Account      string
	AuthorizedAt int64
}

type authorizationStore struct {
	store *badgerhold.Store
	quit  chan struct{}
}

func newAuthorizationStore(baseDir string, logger badger.Logger) (*authorizationStore, error) {
	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, authorizationStoreDir)
	}

	quit := make(chan struct{})
	store, err := createDB(dir, logger, quit)
	if err != nil {
		return nil, fmt.Errorf("failed to open authorization store: %s", err)
	}
	return &authorizationStore{store, quit}, nil
}

func (s *authorizationStore) add(account string) error {
	auth := authorization{
		Account:      account,
		AuthorizedAt: time.Now().Unix(),
	}

	err := s.store.Upsert(account, &auth)
	attempts := 1
	for errors.Is(err, badger.ErrConflict) && attempts <= maxRetries {
		time.Sleep(100 * time.Millisecond)
		err = s.store.Upsert(account, &auth)
		attempts++
	}
	return err
}

func (s *authorizationStore) isAuthorized(account string) (bool, error) {
	var auth authorization
	err := s.store.Get(account, &auth)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// list returns the authorized accounts, oldest authorization first.
func (s *authorizationStore) list() ([]authorization, error) {
	var auths []authorization
	if err := s.store.Find(&auths, nil); err != nil {
		return nil, err
	}
	sort.SliceStable(auths, func(i, j int) bool {
		return auths[i].AuthorizedAt < auths[j].AuthorizedAt
	})
	return auths, nil
}

func (s *authorizationStore) close() {
	close(s.quit)
	// nolint
	s.store.Close()
}

func createDB(
	dbDir string, logger badger.Logger, quit <-chan struct{},
) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, err
	}

	if !isInMemory {
		ticker := time.NewTicker(30 * time.Minute)

		go func() {
			defer ticker.Stop()
			for {
				select {
				case <-quit:
					return
				case <-ticker.C:
					if err := db.Badger().RunValueLogGC(0.5); err != nil && err != badger.ErrNoRewrite {
						if logger != nil {
							logger.Errorf("%s", err)
						}
					}
				}
			}
		}()
	}

	return db, nil
}
