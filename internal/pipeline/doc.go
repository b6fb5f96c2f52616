// Package pipeline implements the recording pipeline: a fixed-rate producer/consumer chain from a capture
// callback, through a single-slot mailbox and a timer that paces
// output at the configured frame rate, into a bounded queue and a
// writer task that hands frames to a media encoder (ffmpeg for video,
// a WAV writer for audio, or a plain CSV row writer for other
// channels) while recording a per-frame timing CSV row alongside.
//
// One Pipeline exists per active source device. Capture, Timer, and
// Writer each run on their own goroutine, communicating only through
// the LatestFrameSlot and the bounded Queue, preserving the
// single-writer, bounded-queue contract.
package pipeline
