// Package mediatypes maps audio file extensions to MIME types.
//
// It has no dependencies so that both the configuration layer and the HTTP
// handlers can import it. Extensions are accepted with or without the
// leading dot and in any case:
//
//	mediatypes.GetMimeType("MP3")      // "audio/mpeg"
//	mediatypes.IsAudioExtension("txt") // false
package mediatypes
