package common

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRandomString(t *testing.T) {
	s := RandomString(12)
	assert.Len(t, s, 12)

	// vanishingly unlikely to collide
	assert.NotEqual(t, RandomString(12), RandomString(12))
}

func TestRandomEmail(t *testing.T) {
	email := RandomEmail("")
	assert.True(t, strings.HasSuffix(email, "@test.local"), email)

	custom := RandomEmail("example.org")
	assert.True(t, strings.HasSuffix(custom, "@example.org"), custom)
	assert.NotEqual(t, email, custom)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "web_login_case_1", SanitizeFilename("web/login:case 1"))
	assert.Equal(t, "plain", SanitizeFilename("Plain"))
}

func TestWaitForCondition(t *testing.T) {
	calls := 0
	result := WaitForCondition(func() bool {
		calls++
		return calls >= 3
	}, time.Second, time.Millisecond)

	assert.True(t, result)
	assert.Equal(t, 3, calls)
}

func TestWaitForCondition_Timeout(t *testing.T) {
	result := WaitForCondition(func() bool { return false }, 20*time.Millisecond, 5*time.Millisecond)
	assert.False(t, result)
}

func TestNewRunID(t *testing.T) {
	id := NewRunID()
	assert.True(t, strings.HasPrefix(id, "run_"))
	assert.NotEqual(t, id, NewRunID())
}
