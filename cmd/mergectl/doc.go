// Command mergectl runs the merge pipeline without the HTTP server.
//
//	mergectl probe clip1.mp3 clip2.wav
//	mergectl merge -o show.mp3 --fade 2 intro.mp3 body.wav outro.mp3
//
// Clips are merged in the order given on the command line. mergectl uses
// the same ffmpeg invocations, workspace handling and typed errors as the
// server.
package main
