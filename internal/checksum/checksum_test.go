package checksum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSumStable(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Sum(nil))
	assert.Equal(t, Sum([]byte("a")), Sum([]byte("a")))
	assert.NotEqual(t, Sum([]byte("a")), Sum([]byte("b")))
}

func TestMatch(t *testing.T) {
	data := []byte("hello")
	sum := Sum(data)

	assert.True(t, Match(sum, data))
	assert.True(t, Match(`"`+sum+`"`, data))
	assert.True(t, Match(`W/"`+sum+`"`, data))
	assert.True(t, Match("*", data))
	assert.False(t, Match(Sum([]byte("other")), data))
	assert.False(t, Match("", data))
}
