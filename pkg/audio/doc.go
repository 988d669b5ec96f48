// Package audio plays tones on the two sound channels of the phone: the
// loudspeaker that rings and the earpiece in the handset.
//
// Playback is delegated to ALSA command line players. Non-repeating .wav
// files go through aplay, which starts fastest; everything else, and every
// repeating sound, goes through sox's play, which decodes any format and can
// loop:
//
//	aplay -q -D <device> <file>
//	AUDIODEV=<device> play -q <file> -t alsa [pad 0 1 repeat 99]
//
// Each channel owns at most one player process. Starting a sound on a
// channel kills the process it replaces.
package audio
