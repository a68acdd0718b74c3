package presence

import (
	"sync"

	"medichat_server/internal/model"
)

// keyedMutex 每个参与者一把锁，不同参与者互不阻塞
// 没有持有者的锁会被回收
type keyedMutex struct {
	mu    sync.Mutex
	locks map[model.Participant]*refLock
}

type refLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[model.Participant]*refLock)}
}

// Lock 加锁并返回解锁函数
func (k *keyedMutex) Lock(p model.Participant) (unlock func()) {
	k.mu.Lock()
	l := k.locks[p]
	if l == nil {
		l = &refLock{}
		k.locks[p] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, p)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
