package session

import (
	"sync"
	"testing"

	"github.com/ayo6706/trading-backoffice/internal/policy"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestLifecycle(t *testing.T) {
	s := New()
	_, ok := s.Identity()
	assert.False(t, ok)

	// Rotating a signed-out session is a no-op.
	s.Rotate(Tokens{Access: "x"})
	assert.Empty(t, s.Tokens().Access)

	branch := uuid.New()
	id := policy.Identity{UserID: uuid.New(), Role: policy.RoleAdmin, BranchID: &branch}
	s.Start(id, "Ada", Tokens{Access: "a1", Refresh: "r1"})
	got, ok := s.Identity()
	assert.True(t, ok)
	assert.Equal(t, id, got)
	assert.Equal(t, "Ada", s.Name())

	s.Rotate(Tokens{Access: "a2", Refresh: "r2"})
	assert.Equal(t, Tokens{Access: "a2", Refresh: "r2"}, s.Tokens())
	got, _ = s.Identity()
	assert.Equal(t, id, got)

	s.End()
	assert.False(t, s.Active())
	assert.Equal(t, Tokens{}, s.Tokens())
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	s.Start(policy.Identity{UserID: uuid.New(), Role: policy.RoleClient}, "c", Tokens{Access: "a"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Rotate(Tokens{Access: "a", Refresh: string(rune('a' + i%26))})
		}()
		go func() {
			defer wg.Done()
			_ = s.Tokens()
			_, _ = s.Identity()
		}()
	}
	wg.Wait()
	assert.Equal(t, "a", s.Tokens().Access)
}
