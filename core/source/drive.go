// Package source talks to the external document source the picker browses:
// the user's Google Drive.
package source

import (
	"context"
	"fmt"
	"io"
	"time"

	"DriveFM/logger"
	"DriveFM/model"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

// DocumentSource is the slice of the drive API the ingestion pipeline needs.
type DocumentSource interface {
	// ListChildren returns the direct children of a folder, restricted to
	// audio files and subfolders.
	ListChildren(ctx context.Context, folderID string) ([]model.DocumentDescriptor, error)
	// FetchContent downloads the raw bytes of a file. Fails on revoked
	// authorization or a missing file.
	FetchContent(ctx context.Context, fileID string) ([]byte, error)
}

// DriveSource implements DocumentSource against the Drive v3 API using the
// bearer token handed over by the browser for this sync call.
type DriveSource struct {
	service  *drive.Service
	pageSize int64
}

// NewDriveSource builds a Drive client around a per-call bearer token. The
// token comes from the browser's own authorization flow; the server never
// refreshes or persists it.
func NewDriveSource(ctx context.Context, accessToken string, pageSize int64) (*DriveSource, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("drive access token is empty")
	}
	if pageSize <= 0 || pageSize > 1000 {
		pageSize = 1000
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	service, err := drive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &DriveSource{service: service, pageSize: pageSize}, nil
}

// ListChildren lists the direct children of folderID, audio mimetypes and
// subfolders only. Only the first page is consumed; a folder with more than
// one page of children gets a truncation warning in the log.
func (s *DriveSource) ListChildren(ctx context.Context, folderID string) ([]model.DocumentDescriptor, error) {
	query := fmt.Sprintf(
		"'%s' in parents and trashed = false and (mimeType contains 'audio/' or mimeType = '%s')",
		folderID, folderMimeType,
	)

	list, err := s.service.Files.List().
		Context(ctx).
		Q(query).
		PageSize(s.pageSize).
		Fields("nextPageToken, files(id, name, mimeType, modifiedTime)").
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list children of folder %s: %w", folderID, err)
	}

	if list.NextPageToken != "" {
		logger.Warn("文件夹子项超过一页，后续分页被忽略",
			logger.String("folderId", folderID),
			logger.Int64("pageSize", s.pageSize))
	}

	docs := make([]model.DocumentDescriptor, 0, len(list.Files))
	for _, f := range list.Files {
		docs = append(docs, model.DocumentDescriptor{
			ID:            f.Id,
			Name:          f.Name,
			LastEditedUtc: parseModifiedTime(f.ModifiedTime),
			IsFolder:      f.MimeType == folderMimeType,
		})
	}
	return docs, nil
}

// FetchContent downloads the whole file into memory. Payloads are bounded
// by what a personal drive holds per track, so no streaming decode here.
func (s *DriveSource) FetchContent(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := s.service.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("failed to download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read content of file %s: %w", fileID, err)
	}
	return data, nil
}

func parseModifiedTime(v string) int64 {
	if v == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return 0
	}
	return t.UnixMilli()
}
