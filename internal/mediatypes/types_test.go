package mediatypes

import (
	"testing"
)

func TestFromFilename(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		want   string
		wantOK bool
	}{
		{name: "lowercase", file: "a.jpg", want: "image/jpeg", wantOK: true},
		{name: "uppercase extension", file: "IMG_0001.JPG", want: "image/jpeg", wantOK: true},
		{name: "nested path", file: "Photos/2024/b.heic", want: "image/heic", wantOK: true},
		{name: "text", file: "doc.txt", want: "text/plain", wantOK: true},
		{name: "unknown", file: "data.bin", wantOK: false},
		{name: "no extension", file: "README", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FromFilename(tt.file)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("FromFilename(%q) = (%q, %v), want (%q, %v)", tt.file, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestTypeOf(t *testing.T) {
	tests := []struct {
		mime string
		want FileType
	}{
		{"image/jpeg", FileTypeImage},
		{"image/svg+xml", FileTypeImage},
		{"video/mp4", FileTypeVideo},
		{FolderMimeType, FileTypeFolder},
		{"text/plain", FileTypeOther},
		{"", FileTypeOther},
	}

	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			if got := TypeOf(tt.mime); got != tt.want {
				t.Errorf("TypeOf(%q) = %v, want %v", tt.mime, got, tt.want)
			}
		})
	}
}

func TestPreviewTypesAreKnown(t *testing.T) {
	known := make(map[string]bool)
	for _, mime := range MimeTypes {
		known[mime] = true
	}

	for _, group := range [][]string{ImagePreviewTypes, VipsPreviewTypes, VideoPreviewTypes} {
		for _, mime := range group {
			if !known[mime] {
				t.Errorf("preview type %q has no extension mapping", mime)
			}
			if kind := TypeOf(mime); kind != FileTypeImage && kind != FileTypeVideo {
				t.Errorf("preview type %q is not a media type", mime)
			}
		}
	}
}
