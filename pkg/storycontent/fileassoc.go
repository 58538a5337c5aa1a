package storycontent

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// UploadedFile is one binary received with a mutation request. Field carries
// the client's multipart field name, which encodes the owning content index:
//
//	content[i][image]
//	content[i][audio]
//	content[i][video]
//	contents[i][sections][s][images][j][image]
//
// This naming convention is a wire contract with existing clients and must be
// parsed exactly as-is.
type UploadedFile struct {
	Field    string
	FileName string
	MimeType string
	Data     []byte
}

// Size returns the source file's byte length.
func (f *UploadedFile) Size() int64 { return int64(len(f.Data)) }

// Ext returns the lowercased file extension without the leading dot, falling
// back to "bin" for extensionless uploads.
func (f *UploadedFile) Ext() string {
	ext := strings.TrimPrefix(filepath.Ext(f.FileName), ".")
	if ext == "" {
		return "bin"
	}
	return strings.ToLower(ext)
}

// FileSlot is the set of binaries resolved for one content index. At most one
// combination is populated per entry: image alone, audio with optional image,
// or video with optional image.
type FileSlot struct {
	Image *UploadedFile
	Audio *UploadedFile
	Video *UploadedFile
}

// FileSet maps a content array index to its resolved file slot.
type FileSet map[int]*FileSlot

// RequestFiles is the structured form of a request's uploaded binaries: the
// per-index slots for flat media kinds plus the raw files for gallery
// elements, which resolve their own images by exact field name.
type RequestFiles struct {
	ByIndex FileSet
	All     []UploadedFile
}

// Slot returns the file slot resolved for the given content index, or nil.
func (rf *RequestFiles) Slot(index int) *FileSlot {
	if rf == nil {
		return nil
	}
	return rf.ByIndex[index]
}

// Lookup returns the uploaded file whose field name matches exactly, or nil.
func (rf *RequestFiles) Lookup(field string) *UploadedFile {
	if rf == nil {
		return nil
	}
	for i := range rf.All {
		if rf.All[i].Field == field {
			return &rf.All[i]
		}
	}
	return nil
}

var fieldIndexPattern = regexp.MustCompile(`\d+`)

// ResolveFiles parses the raw uploaded binaries into a RequestFiles. Entries
// carrying a sections sub-slot are excluded from index resolution; the first
// integer substring in every other field name is the owning content index.
func ResolveFiles(files []UploadedFile) *RequestFiles {
	rf := &RequestFiles{
		ByIndex: make(FileSet),
		All:     files,
	}

	type entry struct {
		image *UploadedFile
		audio *UploadedFile
		video *UploadedFile
	}
	entries := make(map[int]*entry)

	for i := range files {
		f := &files[i]
		if strings.Contains(f.Field, "[sections]") {
			continue
		}

		match := fieldIndexPattern.FindString(f.Field)
		if match == "" {
			continue
		}
		index, err := strconv.Atoi(match)
		if err != nil {
			continue
		}

		e := entries[index]
		if e == nil {
			e = &entry{}
			entries[index] = e
		}
		switch {
		case strings.Contains(f.Field, "[image]"):
			e.image = f
		case strings.Contains(f.Field, "[audio]"):
			e.audio = f
		case strings.Contains(f.Field, "[video]"):
			e.video = f
		}
	}

	for index, e := range entries {
		slot := resolveSlot(e.image, e.audio, e.video)
		if slot != nil {
			rf.ByIndex[index] = slot
		}
	}

	return rf
}

// resolveSlot picks exactly one slot combination per entry, by first match:
// image alone, audio+image, video+image, video alone, audio alone.
func resolveSlot(image, audio, video *UploadedFile) *FileSlot {
	switch {
	case image != nil && audio == nil && video == nil:
		return &FileSlot{Image: image}
	case audio != nil && image != nil:
		return &FileSlot{Audio: audio, Image: image}
	case video != nil && image != nil:
		return &FileSlot{Video: video, Image: image}
	case video != nil:
		return &FileSlot{Video: video}
	case audio != nil:
		return &FileSlot{Audio: audio}
	default:
		return nil
	}
}

// GalleryImageField returns the exact multipart field name that associates an
// uploaded binary with one gallery image position.
func GalleryImageField(contentIndex, sectionIndex, imageIndex int) string {
	return fmt.Sprintf("contents[%d][sections][%d][images][%d][image]", contentIndex, sectionIndex, imageIndex)
}
