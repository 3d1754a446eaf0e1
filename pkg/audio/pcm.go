// Package audio provides PCM decoding helpers shared by the streaming server
// and the offline decoder: conversion of little-endian 16-bit PCM payloads to
// normalized float samples, and a minimal RIFF/WAV reader.
package audio

import "encoding/binary"

// pcmScale normalizes int16 sample values into [-1, 1).
const pcmScale = 1.0 / 32768.0

// DecodePCM16 converts little-endian 16-bit signed mono PCM bytes to
// normalized float32 samples. A trailing odd byte is ignored; senders that
// split samples across messages are expected to keep chunks 2-byte aligned.
func DecodePCM16(data []byte) []float32 {
	n := len(data) / 2
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(data[2*i:]))
		samples[i] = float32(v) * pcmScale
	}
	return samples
}

// EncodePCM16 converts normalized float32 samples back to little-endian
// 16-bit PCM bytes, clipping values outside [-1, 1). Used by tests and tools
// that synthesize audio.
func EncodePCM16(samples []float32) []byte {
	data := make([]byte, 2*len(samples))
	for i, s := range samples {
		v := s * 32768
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		binary.LittleEndian.PutUint16(data[2*i:], uint16(int16(v)))
	}
	return data
}
