package platform

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sadopc/tminus/internal/alert"
)

// heavyGap separates the two rings of a heavy pulse.
const heavyGap = 120 * time.Millisecond

// Bell stands in for a vibration motor by ringing the terminal bell.
// Heavy pulses ring twice, heavyGap apart.
type Bell struct {
	mu  sync.Mutex
	w   io.Writer
	gap time.Duration
}

// NewBell writes to w, or to stderr when w is nil.
func NewBell(w io.Writer) *Bell {
	if w == nil {
		w = os.Stderr
	}
	return &Bell{w: w, gap: heavyGap}
}

func (b *Bell) Pulse(ctx context.Context, i alert.Intensity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n := 1
	if i == alert.Heavy {
		n = 2
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for ring := 0; ring < n; ring++ {
		if ring > 0 {
			t := time.NewTimer(b.gap)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
		if _, err := io.WriteString(b.w, "\a"); err != nil {
			return err
		}
	}
	return nil
}
