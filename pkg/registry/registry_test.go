package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLookup(t *testing.T) {
	reg := New()
	reg.Register("authz", "user", "0", "capability")

	capability, found := reg.Lookup("authz", "user", "0")
	require.True(t, found)
	assert.Equal(t, "capability", capability)

	_, found = reg.Lookup("authz", "user", "1")
	assert.False(t, found)
	_, found = reg.Lookup("authn", "user", "0")
	assert.False(t, found)
	_, found = reg.Lookup("authz", "group", "0")
	assert.False(t, found)
}

func TestRegisterReplaces(t *testing.T) {
	reg := New()
	reg.Register("authz", "user", "0", "first")
	reg.Register("authz", "user", "0", "second")

	capability, found := reg.Lookup("authz", "user", "0")
	require.True(t, found)
	assert.Equal(t, "second", capability)
}

func TestConcurrentLookups(t *testing.T) {
	reg := New()
	reg.Register("authz", "user", "0", 1)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, found := reg.Lookup("authz", "user", "0")
				assert.True(t, found)
			}
		}()
	}
	wg.Wait()
}
