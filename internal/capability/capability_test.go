package capability

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type builder interface{ Build() string }

type fakeBuilder struct{}

func (fakeBuilder) Build() string { return "built" }

func TestRequire(t *testing.T) {
	r := NewRegistry()

	_, err := Require[builder](r, MultiHist)
	assert.ErrorIs(t, err, ErrMissing)

	r.Register(MultiHist, fakeBuilder{})
	b, err := Require[builder](r, MultiHist)
	require.NoError(t, err)
	assert.Equal(t, "built", b.Build())

	_, err = Require[interface{ Read() }](r, MultiHist)
	assert.ErrorIs(t, err, ErrMissing)

	r.Register(MultiHist, nil)
	_, err = Require[builder](r, MultiHist)
	assert.ErrorIs(t, err, ErrMissing)
}

func TestAvailable(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.Available())

	r.Register(Native, 1)
	r.Register(MultiHist, 2)
	assert.Equal(t, []Name{MultiHist, Native}, r.Available())
}

func TestConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Register(Native, fakeBuilder{})
		}()
		go func() {
			defer wg.Done()
			_, _ = r.Lookup(Native)
		}()
	}
	wg.Wait()

	_, ok := r.Lookup(Native)
	assert.True(t, ok)
}
