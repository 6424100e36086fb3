package sfx

import "github.com/dgnsrekt/sfxpool/pkg/soundpool"

// Observer receives engine activity. Calls are made with the engine lock
// held and must not call back into the engine.
type Observer interface {
	EffectLoaded(path string)
	EffectLoadFailed(path string, err error)
	EffectPlayed(path string, loop bool)
	EffectStopped(id soundpool.SoundID)
	EffectUnloaded(path string)
	// LoopingStreams reports the number of tracked looping streams.
	LoopingStreams(n int)
}

type nopObserver struct{}

func (nopObserver) EffectLoaded(string) {}
func (nopObserver) EffectLoadFailed(string, error) {}
func (nopObserver) EffectPlayed(string, bool) {}
func (nopObserver) EffectStopped(soundpool.SoundID) {}
func (nopObserver) EffectUnloaded(string) {}
func (nopObserver) LoopingStreams(int) {}
