package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
	"github.com/gopxl/beep/vorbis"
	"github.com/gopxl/beep/wav"
	"github.com/sadopc/tminus/internal/alert"
	"github.com/sadopc/tminus/internal/logx"
	"pkt.systems/pslog"
)

// SampleRate is the speaker rate every clip is rendered at.
const SampleRate = beep.SampleRate(44100)

// toneGain keeps synthesized sine tones at half amplitude.
const toneGain = -1

type clip struct {
	buf    *beep.Buffer
	volume float64
	ctrl   *beep.Ctrl
}

// BeepAudio plays alarm assets through the system speaker. Assets are
// synthesized from their tone recipe unless SoundsDir holds a
// <id>.wav or <id>.ogg override.
type BeepAudio struct {
	SoundsDir string

	log pslog.Logger

	initOnce sync.Once
	initErr  error

	mu    sync.Mutex
	next  alert.Handle
	clips map[alert.Handle]*clip

	speakerLock sync.Mutex
}

func NewBeepAudio(soundsDir string, log pslog.Logger) *BeepAudio {
	return &BeepAudio{
		SoundsDir: soundsDir,
		log:       logx.OrDiscard(log),
		clips:     make(map[alert.Handle]*clip),
	}
}

func (a *BeepAudio) init() error {
	a.initOnce.Do(func() {
		if err := speaker.Init(SampleRate, SampleRate.N(time.Second/10)); err != nil {
			a.initErr = fmt.Errorf("%w: %v", alert.ErrAudioUnavailable, err)
			a.log.Warn("audio disabled, speaker init failed", "err", err)
		}
	})
	return a.initErr
}

func (a *BeepAudio) Load(asset alert.Asset) (alert.Handle, error) {
	if err := a.init(); err != nil {
		return 0, err
	}
	buf, err := a.render(asset)
	if err != nil {
		return 0, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.next++
	a.clips[a.next] = &clip{buf: buf}
	return a.next, nil
}

func (a *BeepAudio) render(asset alert.Asset) (*beep.Buffer, error) {
	if a.SoundsDir != "" {
		buf, err := loadOverride(a.SoundsDir, asset.ID)
		switch {
		case err == nil:
			return buf, nil
		case !errors.Is(err, os.ErrNotExist):
			logx.WithSound(a.log, asset.ID).Warn("sound override unreadable, using built-in tone", "err", err)
		}
	}
	return Synthesize(asset, SampleRate)
}

func (a *BeepAudio) get(h alert.Handle) (*clip, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.clips[h]
	if !ok {
		return nil, fmt.Errorf("unknown sound handle %d", h)
	}
	return c, nil
}

func (a *BeepAudio) Play(h alert.Handle) error {
	c, err := a.get(h)
	if err != nil {
		return err
	}
	volume := &effects.Volume{
		Streamer: c.buf.Streamer(0, c.buf.Len()),
		Base:     2,
		Volume:   c.volume,
		Silent:   false,
	}
	ctrl := &beep.Ctrl{Streamer: volume}

	a.speakerLock.Lock()
	defer a.speakerLock.Unlock()
	a.mu.Lock()
	c.ctrl = ctrl
	a.mu.Unlock()
	speaker.Play(ctrl)
	return nil
}

func (a *BeepAudio) Stop(h alert.Handle) error {
	c, err := a.get(h)
	if err != nil {
		return err
	}
	a.mu.Lock()
	ctrl := c.ctrl
	c.ctrl = nil
	a.mu.Unlock()
	if ctrl == nil {
		return nil
	}
	speaker.Lock()
	ctrl.Streamer = nil
	speaker.Unlock()
	return nil
}

func (a *BeepAudio) Unload(h alert.Handle) error {
	if err := a.Stop(h); err != nil {
		return err
	}
	a.mu.Lock()
	delete(a.clips, h)
	a.mu.Unlock()
	return nil
}

func (a *BeepAudio) SetVolume(h alert.Handle, volume float64) error {
	c, err := a.get(h)
	if err != nil {
		return err
	}
	a.mu.Lock()
	c.volume = volume
	a.mu.Unlock()
	return nil
}

// Synthesize renders an asset's tone recipe into a stereo buffer.
func Synthesize(asset alert.Asset, sr beep.SampleRate) (*beep.Buffer, error) {
	if len(asset.Tones) == 0 {
		return nil, fmt.Errorf("asset %q has no tones", asset.ID)
	}
	parts := make([]beep.Streamer, 0, len(asset.Tones))
	for _, t := range asset.Tones {
		n := sr.N(t.Duration)
		if t.Freq <= 0 {
			parts = append(parts, beep.Silence(n))
			continue
		}
		tone, err := generators.SineTone(sr, t.Freq)
		if err != nil {
			return nil, fmt.Errorf("synthesize %q: %w", asset.ID, err)
		}
		parts = append(parts, &effects.Volume{Streamer: beep.Take(n, tone), Base: 2, Volume: toneGain})
	}

	buf := beep.NewBuffer(beep.Format{SampleRate: sr, NumChannels: 2, Precision: 2})
	buf.Append(beep.Seq(parts...))
	return buf, nil
}

func loadOverride(dir, id string) (*beep.Buffer, error) {
	for _, ext := range []string{".wav", ".ogg"} {
		path := filepath.Join(dir, id+ext)
		f, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}

		var (
			streamer beep.StreamSeekCloser
			format   beep.Format
		)
		if ext == ".wav" {
			streamer, format, err = wav.Decode(f)
		} else {
			streamer, format, err = vorbis.Decode(f)
		}
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}

		buf := beep.NewBuffer(beep.Format{SampleRate: SampleRate, NumChannels: format.NumChannels, Precision: format.Precision})
		if format.SampleRate != SampleRate {
			buf.Append(beep.Resample(4, format.SampleRate, SampleRate, streamer))
		} else {
			buf.Append(streamer)
		}
		streamer.Close()
		return buf, nil
	}
	return nil, os.ErrNotExist
}
