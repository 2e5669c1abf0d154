package orchestrator

import (
	"encoding/base64"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/arqnb/studio/pkg/conversation"
)

// maxFileSize caps a single attachment at 20MB, matching the inline-data
// limit of the model providers.
const maxFileSize = 20 * 1024 * 1024

// File is a user-picked attachment before transport encoding. The reader
// is consumed exactly once, during encoding.
type File struct {
	Name     string
	MimeType string
	Reader   io.Reader
}

// OpenFile builds a File from a path, guessing the mime type from the
// extension.
func OpenFile(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, errors.Wrapf(err, "could not open %s", path)
	}
	return File{
		Name:     filepath.Base(path),
		MimeType: mimeTypeFromExtension(filepath.Ext(path)),
		Reader:   f,
	}, nil
}

// encodeFiles converts files to their base64 transport form. Files encode
// concurrently; the first failure aborts the turn before any network call.
func encodeFiles(files []File) ([]conversation.Attachment, error) {
	if len(files) == 0 {
		return nil, nil
	}

	attachments := make([]conversation.Attachment, len(files))
	group := errgroup.Group{}
	for i, file := range files {
		i, file := i, file
		group.Go(func() error {
			attachment, err := encodeFile(file)
			if err != nil {
				return err
			}
			attachments[i] = attachment
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return attachments, nil
}

func encodeFile(file File) (conversation.Attachment, error) {
	if file.Reader == nil {
		return conversation.Attachment{}, errors.Errorf("file %q has no content", file.Name)
	}

	data, err := io.ReadAll(io.LimitReader(file.Reader, maxFileSize+1))
	if closer, ok := file.Reader.(io.Closer); ok {
		_ = closer.Close()
	}
	if err != nil {
		return conversation.Attachment{}, errors.Wrapf(err, "could not read file %q", file.Name)
	}
	if len(data) > maxFileSize {
		return conversation.Attachment{}, errors.Errorf("file %q exceeds the 20MB limit", file.Name)
	}

	return conversation.Attachment{
		Name:     file.Name,
		MimeType: file.MimeType,
		Data:     base64.StdEncoding.EncodeToString(data),
	}, nil
}

func mimeTypeFromExtension(ext string) string {
	switch ext {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".ogg":
		return "audio/ogg"
	case ".webm":
		return "audio/webm"
	case ".m4a":
		return "audio/mp4"
	default:
		return "application/octet-stream"
	}
}
