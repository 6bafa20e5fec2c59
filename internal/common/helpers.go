package common

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

const randomChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomString generates a random alphanumeric string of the given length.
// Used for unique test data (usernames, titles) so parallel cases don't collide.
func RandomString(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = randomChars[rand.Intn(len(randomChars))]
	}
	return string(b)
}

// RandomEmail generates a random email address on the given domain.
func RandomEmail(domain string) string {
	if domain == "" {
		domain = "test.local"
	}
	return fmt.Sprintf("%s@%s", strings.ToLower(RandomString(8)), domain)
}

// Timestamp returns the current time formatted for file and directory names.
func Timestamp() string {
	return time.Now().Format("20060102-150405")
}

// SanitizeFilename converts a name to a safe filename format
func SanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		" ", "_",
		"/", "_",
		"\\", "_",
		":", "_",
		"<", "_",
		">", "_",
		"\"", "_",
		"|", "_",
		"?", "_",
		"*", "_",
	)
	return strings.ToLower(replacer.Replace(name))
}

// WaitForCondition polls condition until it returns true or the timeout
// elapses. Returns false on timeout.
func WaitForCondition(condition func() bool, timeout, pollInterval time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(pollInterval)
	}
	return false
}
