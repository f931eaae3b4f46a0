// Package ffmpeg wraps the ffmpeg command line for the two operations the
// import pipeline needs: burning a still overlay onto a video and rewriting
// container metadata without re-encoding.
//
// Commands are started through a package-level constructor so tests can swap
// in a helper process instead of a real ffmpeg binary.
package ffmpeg
