// Package transcoder wraps the external ffmpeg/ffprobe utilities behind the
// Tool interface used by the merge pipeline.
//
// It supports:
//   - Metadata probing (duration, container, first audio stream) via ffprobe JSON
//   - Normalizing any supported input to 16-bit stereo 44.1 kHz PCM WAV
//   - Concatenating normalized clips through the concat demuxer and
//     re-encoding them to MP3, with optional fade-in and fade-out
//   - Writing and parsing concat demuxer lists
//
// FFmpeg is the subprocess-backed implementation. Every invocation is bound
// to the caller's context; when the context expires the process is killed.
// Fake is a deterministic in-process implementation for tests that do not
// have ffmpeg installed.
package transcoder
