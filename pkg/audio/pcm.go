// Package audio provides PCM sample conversion and capture sources for the
// recording pipeline. Capture devices deliver 32-bit float samples; the
// transcription transport wants 16-bit little-endian integer PCM.
package audio

// BlockSize is the number of samples per capture block handed to the
// conversion stage. At 16 kHz mono this is 256 ms of audio.
const BlockSize = 4096

// CaptureSampleRate is the sample rate the capture pipeline produces, in Hz.
const CaptureSampleRate = 16000

// Float32ToPCM16 converts 32-bit float samples in the range [-1, 1] to 16-bit
// little-endian PCM bytes. Samples outside the range are clamped before
// scaling, so clipped input degrades to full-scale output instead of wrapping.
func Float32ToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

// PCM16ToFloat32 converts 16-bit little-endian PCM bytes back to float
// samples in [-1, 1]. A trailing odd byte is ignored.
func PCM16ToFloat32(pcm []byte) []float32 {
	out := make([]float32, len(pcm)/2)
	for i := range out {
		v := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		out[i] = float32(v) / 32768.0
	}
	return out
}

// MixToMono averages interleaved multi-channel float samples down to mono.
// With channels <= 1 the input is returned unchanged.
func MixToMono(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	out := make([]float32, frames)
	for i := range frames {
		var sum float32
		for c := range channels {
			sum += samples[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// ResampleFloat32 resamples float PCM from srcRate to dstRate using linear
// interpolation. If srcRate == dstRate, the input is returned unchanged.
func ResampleFloat32(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate <= 0 || dstRate <= 0 {
		return samples
	}
	if srcRate == dstRate || len(samples) < 2 {
		return samples
	}
	dstLen := int(int64(len(samples)) * int64(dstRate) / int64(srcRate))
	if dstLen == 0 {
		return nil
	}

	out := make([]float32, dstLen)
	ratio := float64(srcRate) / float64(dstRate)

	for i := range dstLen {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		if srcIdx >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := float32(srcPos - float64(srcIdx))
		s0 := samples[srcIdx]
		s1 := samples[srcIdx+1]
		out[i] = s0 + (s1-s0)*frac
	}
	return out
}
