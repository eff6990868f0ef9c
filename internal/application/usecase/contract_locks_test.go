package usecase_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tontina/caisse-engine/internal/application/usecase"
)

func TestContractLocks(t *testing.T) {
	t.Run("serializes access per contract", func(t *testing.T) {
		locks := usecase.NewContractLocks()

		counter := 0
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				release := locks.Lock("contract-001")
				defer release()
				counter++
			}()
		}
		wg.Wait()

		assert.Equal(t, 100, counter)
	})

	t.Run("does not block other contracts", func(t *testing.T) {
		locks := usecase.NewContractLocks()

		releaseA := locks.Lock("contract-a")
		defer releaseA()

		done := make(chan struct{})
		go func() {
			release := locks.Lock("contract-b")
			release()
			close(done)
		}()

		<-done
	})

	t.Run("can relock after release", func(t *testing.T) {
		locks := usecase.NewContractLocks()

		release := locks.Lock("contract-001")
		release()

		release = locks.Lock("contract-001")
		release()
	})
}
