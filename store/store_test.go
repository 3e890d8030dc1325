package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IceFireDB/IceFireDB-Chord/ring"
)

type fakeDriver struct{ name string }

func (d fakeDriver) String() string { return d.name }

func (d fakeDriver) Open(Config) (Store, error) {
	return nil, errors.New("not implemented")
}

func TestRegisterAndOpen(t *testing.T) {
	Register(fakeDriver{name: "fake-open"})
	assert.Contains(t, Drivers(), "fake-open")

	_, err := Open("fake-open", Config{})
	assert.EqualError(t, err, "not implemented")

	_, err = Open("no-such-driver", Config{})
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	Register(fakeDriver{name: "fake-dup"})
	assert.Panics(t, func() { Register(fakeDriver{name: "fake-dup"}) })
}

func TestEncodeKey(t *testing.T) {
	for _, k := range []ring.ID{0, 1, 31, 1 << 40} {
		id, err := DecodeKey(EncodeKey(k))
		require.NoError(t, err)
		assert.Equal(t, k, id)
	}

	// byte order follows numeric order
	assert.Less(t, string(EncodeKey(255)), string(EncodeKey(256)))

	_, err := DecodeKey([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestItem(t *testing.T) {
	assert.False(t, Absent.Found)
	assert.True(t, Found(nil).Found)
	assert.Equal(t, []byte("v"), Found([]byte("v")).Value)
}
