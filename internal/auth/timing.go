package auth

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingConfig holds configuration for uniform failure-response timing
type TimingConfig struct {
	BaseDelayMs   int // Base delay in milliseconds
	RandomDelayMs int // Random delay range in milliseconds
}

// TimingDelay pads failed authentication responses so "unknown email" and
// "wrong password" take approximately the same time.
type TimingDelay struct {
	config TimingConfig
}

// NewTimingDelay creates a new TimingDelay instance
func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{config: config}
}

// cryptoRandIntn returns a secure random number in [0, max)
func cryptoRandIntn(max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}

	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return 0, err
	}

	randomValue := binary.BigEndian.Uint64(randomBytes)
	return int(randomValue % uint64(max)), nil
}

// WaitFrom sleeps until at least baseDelay+jitter has elapsed since startTime.
// Successful logins are not delayed.
func (td *TimingDelay) WaitFrom(startTime time.Time, success bool) {
	if success {
		return
	}

	targetDelay := time.Duration(td.config.BaseDelayMs) * time.Millisecond
	if td.config.RandomDelayMs > 0 {
		if randomValue, err := cryptoRandIntn(td.config.RandomDelayMs); err == nil {
			targetDelay += time.Duration(randomValue) * time.Millisecond
		}
	}

	elapsed := time.Since(startTime)
	if elapsed < targetDelay {
		time.Sleep(targetDelay - elapsed)
	}
}
