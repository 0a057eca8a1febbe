package usecase

import (
	"context"
	"errors"
	"testing"

	"massdownloader/internal/application/ports"
	"massdownloader/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestRunConsent(t *testing.T) {
	t.Run("keeps the first answer", func(t *testing.T) {
		gate := &mocks.MockConsentGate{}
		gate.On("RequestConsent", mock.Anything, mock.Anything).Return(true, nil).Once()
		consent := newRunConsent(gate)

		for i := 0; i < 3; i++ {
			accepted, err := consent.RequestConsent(context.Background(), ports.ConsentRequest{LicenseText: "terms"})
			assert.NoError(t, err)
			assert.True(t, accepted)
		}
		gate.AssertNumberOfCalls(t, "RequestConsent", 1)
	})

	t.Run("errors are not remembered", func(t *testing.T) {
		gate := &mocks.MockConsentGate{}
		gate.On("RequestConsent", mock.Anything, mock.Anything).Return(false, errors.New("tty closed")).Once()
		gate.On("RequestConsent", mock.Anything, mock.Anything).Return(true, nil).Once()
		consent := newRunConsent(gate)

		_, err := consent.RequestConsent(context.Background(), ports.ConsentRequest{})
		assert.Error(t, err)

		accepted, err := consent.RequestConsent(context.Background(), ports.ConsentRequest{})
		assert.NoError(t, err)
		assert.True(t, accepted)
	})

	t.Run("no gate never accepts", func(t *testing.T) {
		consent := newRunConsent(nil)

		accepted, err := consent.RequestConsent(context.Background(), ports.ConsentRequest{})

		assert.NoError(t, err)
		assert.False(t, accepted)
	})
}

func TestKeyedLock(t *testing.T) {
	locks := newKeyedLock()

	unlockA := locks.Lock("a.pdb/1")
	done := make(chan struct{})
	go func() {
		unlock := locks.Lock("b.pdb/1")
		unlock()
		close(done)
	}()
	<-done
	unlockA()

	unlockA = locks.Lock("a.pdb/1")
	unlockA()
}
