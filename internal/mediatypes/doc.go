// Package mediatypes provides shared MIME type definitions for the gallery
// tools.
//
// This package is a dependency-free foundation that can be imported by other
// packages without creating import cycles.
//
// # MIME Types
//
// The storage scanner records a MIME type for every file in the file cache.
// It comes from the extension first:
//
//	mime, ok := mediatypes.FromFilename("IMG_0001.JPG") // "image/jpeg", true
//
// Folders are recorded as [FolderMimeType].
//
// # Preview Types
//
// [ImagePreviewTypes], [VipsPreviewTypes] and [VideoPreviewTypes] list the
// types a preview can be rendered for, grouped by the tool needed to render
// them. The media package combines them into the supported set depending on
// what is available at runtime.
package mediatypes
