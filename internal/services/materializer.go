package services

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/welldanyogia/svp-backend/internal/models"
	"github.com/welldanyogia/svp-backend/internal/storage"
	"github.com/welldanyogia/svp-backend/internal/validator"
)

// UploadsRoute is the URL path prefix the uploads directory is served under
const UploadsRoute = "/uploads"

const maxNameAttempts = 3

// InboundPart is one uploaded file of an inbound message or operator reply
type InboundPart struct {
	// FieldName is the form field the part arrived in ("attachment-1"); the
	// content-id map refers to parts by this name.
	FieldName   string
	FileName    string
	ContentType string
	// ContentID is set for inline MIME parts received over SMTP
	ContentID string
	Data      []byte
}

// MaterializedFile describes a part written to the uploads directory
type MaterializedFile struct {
	FieldName    string
	OriginalName string
	StoredName   string
	Path         string
	Size         int64
	MimeType     string
}

// MaterializeResult is the outcome of Materialize
type MaterializeResult struct {
	Files []MaterializedFile
	Body  string
}

// Attachments converts the written files into attachment rows
func (r MaterializeResult) Attachments() []models.Attachment {
	out := make([]models.Attachment, 0, len(r.Files))
	for _, f := range r.Files {
		out = append(out, models.Attachment{
			OriginalName: f.OriginalName,
			StoredName:   f.StoredName,
			Path:         f.Path,
			SizeBytes:    f.Size,
			MimeType:     f.MimeType,
		})
	}
	return out
}

// Materializer writes uploaded parts to the uploads directory and points
// inline cid: references in the body at their public URLs
type Materializer struct {
	storage   storage.FileStorage
	namer     *storage.Namer
	publicURL string
	logger    *slog.Logger
}

// NewMaterializer creates a new Materializer. publicURL is the externally
// reachable base URL of this service.
func NewMaterializer(fs storage.FileStorage, publicURL string, logger *slog.Logger) *Materializer {
	return &Materializer{
		storage:   fs,
		namer:     storage.NewNamer(),
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger,
	}
}

// PublicURL returns the URL a stored file is served at
func (m *Materializer) PublicURL(storedName string) string {
	return m.publicURL + UploadsRoute + "/" + storedName
}

// Materialize persists parts and rewrites body. A part that cannot be written
// is logged and skipped.
func (m *Materializer) Materialize(parts []InboundPart, body string, contentIDMap map[string]string) MaterializeResult {
	res := MaterializeResult{Body: body}

	for _, p := range parts {
		original := DecodeFilename(p.FileName)
		file, err := m.write(original, p)
		if err != nil {
			if m.logger != nil {
				m.logger.Error("failed to save attachment",
					slog.String("filename", original),
					slog.Any("error", err))
			}
			continue
		}
		res.Files = append(res.Files, *file)

		url := m.PublicURL(file.StoredName)
		for _, name := range []string{original, p.FileName} {
			if name != "" {
				res.Body = strings.ReplaceAll(res.Body, "cid:"+name, url)
			}
		}
		if cid := validator.NormalizeMessageID(p.ContentID); cid != "" {
			res.Body = strings.ReplaceAll(res.Body, "cid:"+cid, url)
		}
		if p.FieldName != "" {
			for key, field := range contentIDMap {
				if field != p.FieldName {
					continue
				}
				if cid := validator.NormalizeMessageID(key); cid != "" {
					res.Body = strings.ReplaceAll(res.Body, "cid:"+cid, url)
				}
			}
		}
	}

	res.Body = strings.ReplaceAll(res.Body, "http://email.mailgun", "https://email.mailgun")
	return res
}

func (m *Materializer) write(original string, p InboundPart) (*MaterializedFile, error) {
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		stored := m.namer.StoredName(original)
		n, err := m.storage.Save(stored, bytes.NewReader(p.Data))
		if errors.Is(err, storage.ErrFileExists) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &MaterializedFile{
			FieldName:    p.FieldName,
			OriginalName: original,
			StoredName:   stored,
			Path:         path.Join(strings.TrimPrefix(UploadsRoute, "/"), stored),
			Size:         n,
			MimeType:     mimeTypeOf(p.ContentType, original),
		}, nil
	}
	return nil, fmt.Errorf("no free stored name for %q", original)
}

// Discard removes files written by Materialize, used when the enclosing
// transaction rolls back
func (m *Materializer) Discard(res MaterializeResult) {
	for _, f := range res.Files {
		if err := m.storage.Delete(f.StoredName); err != nil && m.logger != nil {
			m.logger.Warn("failed to discard attachment",
				slog.String("stored_name", f.StoredName),
				slog.Any("error", err))
		}
	}
}

// Open returns the content of a stored file
func (m *Materializer) Open(storedName string) (io.ReadCloser, error) {
	return m.storage.Get(storedName)
}

func mimeTypeOf(declared, name string) string {
	if declared != "" {
		return declared
	}
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		return t
	}
	return "application/octet-stream"
}
