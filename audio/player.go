package audio

import "voxchat/models"

// Player plays audio buffers. Play returns at once; the channel closes when
// playback finishes or is stopped.
type Player interface {
	Play(buf models.AudioBuffer) (<-chan struct{}, error)
	Stop()
}
