package remote

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// NewID returns a document id that sorts by creation time, like realtime database push keys.
func NewID(now time.Time) string {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		// crypto/rand does not fail on supported platforms
		panic(fmt.Sprintf("rand.Read() > %v", err))
	}
	return fmt.Sprintf("%012x%s", now.UnixMilli(), hex.EncodeToString(suffix))
}
