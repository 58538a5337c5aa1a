package storycontent

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// categoryForKind returns the object key prefix for a kind's binaries.
func categoryForKind(kind ElementKind) string {
	switch kind {
	case KindImage, KindGallery:
		return "images"
	case KindAudio:
		return "audio"
	case KindVideo:
		return "videos"
	case KindGif:
		return "gifs"
	case KindRecording:
		return "recordings"
	default:
		return "media"
	}
}

// handleElement dispatches one submitted element to its kind's media handler.
// Elements of unknown kind return a nil element with no error and produce no
// output in the reconciled array.
func (s *service) handleElement(ctx context.Context, el Element, files *RequestFiles, page *Page, index int) (Element, error) {
	now := time.Now().UTC()
	switch in := el.(type) {
	case *TextElement:
		return GenerateElement(in, now), nil
	case *ImageElement:
		return s.handleImage(ctx, in, files, page, index, now)
	case *GalleryElement:
		return s.handleGallery(ctx, in, files, page, index, now)
	case *AudioElement:
		return s.handleAudio(ctx, in, files, page, index, now)
	case *VideoElement:
		return s.handleVideo(ctx, in, files, page, index, now)
	case *GifElement:
		return s.handleGif(ctx, in, files, page, index, now)
	case *RecordingElement:
		return s.handleRecording(ctx, in, files, page, index, now)
	default:
		return nil, nil
	}
}

// uploadMedia stores one uploaded binary under a freshly generated key
// "{category}/{pageID}/{id}.{ext}" in the backend routed for the kind.
func (s *service) uploadMedia(ctx context.Context, kind ElementKind, pageID uuid.UUID, file *UploadedFile) (string, error) {
	store, backend, err := s.storeForKind(kind)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("%s/%s/%s.%s", categoryForKind(kind), pageID, uuid.New(), file.Ext())
	params := UploadParams{ObjectKey: key, MimeType: file.MimeType}
	if err := store.UploadWithParams(ctx, bytes.NewReader(file.Data), params); err != nil {
		return "", &StorageError{Backend: backend, Key: key, Op: "upload", Err: err}
	}
	return key, nil
}

// uploadFrame stores an extracted still frame as a JPEG thumbnail.
func (s *service) uploadFrame(ctx context.Context, kind ElementKind, pageID uuid.UUID, frame []byte) (string, error) {
	store, backend, err := s.storeForKind(kind)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("%s/%s/%s.jpg", categoryForKind(kind), pageID, uuid.New())
	params := UploadParams{ObjectKey: key, MimeType: "image/jpeg"}
	if err := store.UploadWithParams(ctx, bytes.NewReader(frame), params); err != nil {
		return "", &StorageError{Backend: backend, Key: key, Op: "upload", Err: err}
	}
	return key, nil
}

func (s *service) handleImage(ctx context.Context, in *ImageElement, files *RequestFiles, page *Page, index int, now time.Time) (Element, error) {
	out := GenerateElement(in, now).(*ImageElement)

	slot := files.Slot(index)
	if slot != nil && slot.Image != nil {
		key, err := s.uploadMedia(ctx, KindImage, page.ID, slot.Image)
		if err != nil {
			return nil, &ElementError{ContentID: out.ContentID, Kind: KindImage, Op: "upload", Err: err}
		}
		out.Image = key
		out.Size = slot.Image.Size()
		return out, nil
	}

	// No binary changed: carry the stored media fields forward unchanged.
	if prev, ok := page.ElementByID(in.ContentID).(*ImageElement); ok {
		out.Image = prev.Image
		out.Size = prev.Size
		out.Place = prev.Place
	}
	return out, nil
}

func (s *service) handleAudio(ctx context.Context, in *AudioElement, files *RequestFiles, page *Page, index int, now time.Time) (Element, error) {
	out := GenerateElement(in, now).(*AudioElement)

	slot := files.Slot(index)
	if slot != nil && slot.Audio != nil {
		key, err := s.uploadMedia(ctx, KindAudio, page.ID, slot.Audio)
		if err != nil {
			return nil, &ElementError{ContentID: out.ContentID, Kind: KindAudio, Op: "upload", Err: err}
		}
		out.URL = key
		out.Size = slot.Audio.Size()

		duration, err := s.prober.ProbeDuration(ctx, bytes.NewReader(slot.Audio.Data))
		if err != nil {
			return nil, &ElementError{ContentID: out.ContentID, Kind: KindAudio, Op: "probe", Err: err}
		}
		out.Duration = duration

		if slot.Image != nil {
			imageKey, err := s.uploadMedia(ctx, KindAudio, page.ID, slot.Image)
			if err != nil {
				return nil, &ElementError{ContentID: out.ContentID, Kind: KindAudio, Op: "upload", Err: err}
			}
			out.Image = imageKey
		}
		return out, nil
	}

	if prev, ok := page.ElementByID(in.ContentID).(*AudioElement); ok {
		out.URL = prev.URL
		out.Image = prev.Image
		out.Duration = prev.Duration
		out.Size = prev.Size
		out.Title = prev.Title
		out.Place = prev.Place
	}
	return out, nil
}

func (s *service) handleRecording(ctx context.Context, in *RecordingElement, files *RequestFiles, page *Page, index int, now time.Time) (Element, error) {
	out := GenerateElement(in, now).(*RecordingElement)

	slot := files.Slot(index)
	if slot != nil && slot.Audio != nil {
		key, err := s.uploadMedia(ctx, KindRecording, page.ID, slot.Audio)
		if err != nil {
			return nil, &ElementError{ContentID: out.ContentID, Kind: KindRecording, Op: "upload", Err: err}
		}
		out.URL = key
		out.Size = slot.Audio.Size()

		duration, err := s.prober.ProbeDuration(ctx, bytes.NewReader(slot.Audio.Data))
		if err != nil {
			return nil, &ElementError{ContentID: out.ContentID, Kind: KindRecording, Op: "probe", Err: err}
		}
		out.Duration = duration

		if slot.Image != nil {
			imageKey, err := s.uploadMedia(ctx, KindRecording, page.ID, slot.Image)
			if err != nil {
				return nil, &ElementError{ContentID: out.ContentID, Kind: KindRecording, Op: "upload", Err: err}
			}
			out.Image = imageKey
		}
		return out, nil
	}

	if prev, ok := page.ElementByID(in.ContentID).(*RecordingElement); ok {
		out.URL = prev.URL
		out.Image = prev.Image
		out.Duration = prev.Duration
		out.Size = prev.Size
		out.Title = prev.Title
		out.Place = prev.Place
	}
	return out, nil
}

func (s *service) handleVideo(ctx context.Context, in *VideoElement, files *RequestFiles, page *Page, index int, now time.Time) (Element, error) {
	out := GenerateElement(in, now).(*VideoElement)

	slot := files.Slot(index)
	if slot != nil && slot.Video != nil {
		key, err := s.uploadMedia(ctx, KindVideo, page.ID, slot.Video)
		if err != nil {
			return nil, &ElementError{ContentID: out.ContentID, Kind: KindVideo, Op: "upload", Err: err}
		}
		out.URL = key
		out.Size = slot.Video.Size()

		// A client-supplied thumbnail wins over frame extraction.
		var frame []byte
		if slot.Image != nil {
			frame = slot.Image.Data
		} else {
			frame, err = s.prober.ExtractFrame(ctx, bytes.NewReader(slot.Video.Data))
			if err != nil {
				return nil, &ElementError{ContentID: out.ContentID, Kind: KindVideo, Op: "extract_frame", Err: err}
			}
		}
		imageKey, err := s.uploadFrame(ctx, KindVideo, page.ID, frame)
		if err != nil {
			return nil, &ElementError{ContentID: out.ContentID, Kind: KindVideo, Op: "upload", Err: err}
		}
		out.Image = imageKey

		width, height, err := s.prober.InspectImage(ctx, bytes.NewReader(frame))
		if err != nil {
			return nil, &ElementError{ContentID: out.ContentID, Kind: KindVideo, Op: "inspect", Err: err}
		}
		out.Width = width
		out.Height = height
		return out, nil
	}

	if prev, ok := page.ElementByID(in.ContentID).(*VideoElement); ok {
		out.URL = prev.URL
		out.Image = prev.Image
		out.VideoID = prev.VideoID
		out.Width = prev.Width
		out.Height = prev.Height
		out.Duration = prev.Duration
		out.Size = prev.Size
		out.RTMP = prev.RTMP
		out.Place = prev.Place
	}
	return out, nil
}

func (s *service) handleGif(ctx context.Context, in *GifElement, files *RequestFiles, page *Page, index int, now time.Time) (Element, error) {
	out := GenerateElement(in, now).(*GifElement)

	slot := files.Slot(index)
	var src *UploadedFile
	if slot != nil {
		src = slot.Video
		if src == nil {
			src = slot.Image
		}
	}

	if src != nil {
		key, err := s.uploadMedia(ctx, KindGif, page.ID, src)
		if err != nil {
			return nil, &ElementError{ContentID: out.ContentID, Kind: KindGif, Op: "upload", Err: err}
		}
		out.URL = key

		frame, err := s.prober.ExtractFrame(ctx, bytes.NewReader(src.Data))
		if err != nil {
			return nil, &ElementError{ContentID: out.ContentID, Kind: KindGif, Op: "extract_frame", Err: err}
		}
		imageKey, err := s.uploadFrame(ctx, KindGif, page.ID, frame)
		if err != nil {
			return nil, &ElementError{ContentID: out.ContentID, Kind: KindGif, Op: "upload", Err: err}
		}
		out.Image = imageKey
		return out, nil
	}

	if prev, ok := page.ElementByID(in.ContentID).(*GifElement); ok {
		out.URL = prev.URL
		out.Image = prev.Image
		out.Place = prev.Place
	}
	return out, nil
}

// handleGallery resolves its own files by exact templated field name rather
// than through the per-index slots. Matched images are re-uploaded under a
// fresh id; a gallery with no matched files at all falls back to the stored
// sections with only the caption taken from the submission.
func (s *service) handleGallery(ctx context.Context, in *GalleryElement, files *RequestFiles, page *Page, index int, now time.Time) (Element, error) {
	out := GenerateElement(in, now).(*GalleryElement)

	matched := false
	for si := range out.Sections {
		section := &out.Sections[si]
		if section.ID == "" {
			section.ID = MintContentID()
		}
		for ii := range section.Images {
			if section.Images[ii].ID == "" {
				section.Images[ii].ID = MintContentID()
			}
			file := files.Lookup(GalleryImageField(index, si, ii))
			if file == nil {
				continue
			}
			matched = true
			key, err := s.uploadMedia(ctx, KindGallery, page.ID, file)
			if err != nil {
				return nil, &ElementError{ContentID: out.ContentID, Kind: KindGallery, Op: "upload", Err: err}
			}
			section.Images[ii] = GalleryImage{
				ID:    MintContentID(),
				Image: key,
				Size:  file.Size(),
			}
		}
	}

	if !matched {
		if prev, ok := page.ElementByID(in.ContentID).(*GalleryElement); ok {
			out.Sections = cloneSections(prev.Sections)
		}
	}
	return out, nil
}
