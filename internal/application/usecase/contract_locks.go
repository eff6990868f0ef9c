package usecase

import "sync"

// ContractLocks serializes mutating use cases per contract. Two concurrent
// commands against the same contract run one after the other; commands
// against different contracts are unaffected.
type ContractLocks struct {
	mu    sync.Mutex
	locks map[string]*contractLock
}

type contractLock struct {
	mu   sync.Mutex
	refs int
}

func NewContractLocks() *ContractLocks {
	return &ContractLocks{locks: make(map[string]*contractLock)}
}

// Lock acquires the lock for the given contract and returns its release
// function. Entries are dropped once no caller holds or waits on them.
func (c *ContractLocks) Lock(contractID string) func() {
	c.mu.Lock()
	l, ok := c.locks[contractID]
	if !ok {
		l = &contractLock{}
		c.locks[contractID] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()
		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, contractID)
		}
		c.mu.Unlock()
	}
}
