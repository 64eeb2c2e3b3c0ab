package multitrack

import (
	"encoding/binary"
	"math"
)

// RenderSession plays the engine's tracks from position zero into a stereo
// interleaved buffer, in render-callback sized chunks so deferred starts and
// tempo timing land exactly where live playback would put them. The engine
// is stopped afterwards.
func (e *Engine) RenderSession(seconds float64) ([]float32, error) {
	if seconds <= 0 {
		seconds = e.MaxPosition()
	}
	if err := e.Stop(); err != nil {
		return nil, err
	}
	e.Advance(1.0) // let the stop settle on the host timeline
	if err := e.Play(); err != nil {
		return nil, err
	}
	frames := int(float64(e.sampleRate) * seconds)
	out := make([]float32, frames*2)
	const chunkFrames = 512
	for off := 0; off < frames; off += chunkFrames {
		n := chunkFrames
		if off+n > frames {
			n = frames - off
		}
		e.Process(out[off*2 : (off+n)*2])
	}
	if err := e.Stop(); err != nil {
		return nil, err
	}
	e.Advance(1.0)
	return out, nil
}

// EncodeWAVFloat32LE wraps interleaved float32 samples in a WAV container
// (format 3, IEEE float).
func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}
