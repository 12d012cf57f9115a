package usecase

import (
	"sync"
	"testing"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	keys := newKeyedMutex()

	inCritical := 0
	maxInCritical := 0
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := keys.Lock("u-1/report")
			defer unlock()

			mu.Lock()
			inCritical++
			if inCritical > maxInCritical {
				maxInCritical = inCritical
			}
			mu.Unlock()

			mu.Lock()
			inCritical--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxInCritical != 1 {
		t.Fatalf("expected exclusive access per key, saw %d holders", maxInCritical)
	}
}

func TestKeyedMutexIndependentKeysDoNotBlock(t *testing.T) {
	keys := newKeyedMutex()

	unlockA := keys.Lock("u-1/a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := keys.Lock("u-1/b")
		unlockB()
		close(done)
	}()

	<-done
}

func TestKeyedMutexCleansUpEntries(t *testing.T) {
	keys := newKeyedMutex()

	unlock := keys.Lock("u-1/report")
	unlock()

	keys.mu.Lock()
	defer keys.mu.Unlock()
	if len(keys.entries) != 0 {
		t.Fatalf("expected no retained entries, got %d", len(keys.entries))
	}
}
