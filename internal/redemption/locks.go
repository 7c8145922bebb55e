package redemption

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// accountLocks serializes requests per account. An entry lives only while
// some request holds or waits for it.
type accountLocks struct {
	mu   sync.Mutex
	held map[common.Address]*accountLock
}

type accountLock struct {
	sync.Mutex
	refs int
}

func (l *accountLocks) lock(account common.Address) func() {
	l.mu.Lock()
	if l.held == nil {
		l.held = make(map[common.Address]*accountLock)
	}
	al, ok := l.held[account]
	if !ok {
		al = &accountLock{}
		l.held[account] = al
	}
	al.refs++
	l.mu.Unlock()

	al.Lock()
	return func() {
		al.Unlock()
		l.mu.Lock()
		al.refs--
		if al.refs == 0 {
			delete(l.held, account)
		}
		l.mu.Unlock()
	}
}

func (l *accountLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}
