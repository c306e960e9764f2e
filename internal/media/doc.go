// Package media renders and stores file previews.
//
// Images are decoded with libvips when it was started with InitVips, which
// shrinks while decoding, and with the pure Go decoders of imaging
// otherwise. Video previews use a frame extracted by ffmpeg. Renditions are
// JPEG files written to the owner's home storage under
// thumbnails/<fileId>/<maxX>-<maxY>.jpg, under an exclusive lock on the
// preview folder.
package media
