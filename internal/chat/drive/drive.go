// Package drive fetches the newest WhatsApp export archive from a
// Google Drive folder using a service account.
package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"

	"go.uber.org/zap"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"vibesync/internal/chat"
)

// ErrArchiveNotFound means the folder held no matching export. The run
// aborts rather than treating an empty chat as "remove everything".
var ErrArchiveNotFound = errors.New("no chat export found in Drive folder")

type Source struct {
	service     *drive.Service
	folderID    string
	archiveName string // optional exact name; empty picks the newest zip
	pattern     *regexp.Regexp
	logger      *zap.Logger
}

func NewSource(ctx context.Context, credentialsFile, folderID, archiveName string, pattern *regexp.Regexp, logger *zap.Logger) (*Source, error) {
	service, err := drive.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(drive.DriveReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}

	return &Source{
		service:     service,
		folderID:    folderID,
		archiveName: archiveName,
		pattern:     pattern,
		logger:      logger,
	}, nil
}

// Fetch locates the export in the folder, downloads it and extracts
// the transcript.
func (s *Source) Fetch(ctx context.Context) (string, error) {
	file, err := s.findArchive(ctx)
	if err != nil {
		return "", err
	}

	s.logger.Info("downloading chat export",
		zap.String("fileID", file.Id),
		zap.String("name", file.Name))

	resp, err := s.service.Files.Get(file.Id).Context(ctx).Download()
	if err != nil {
		return "", fmt.Errorf("failed to download %q: %w", file.Name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read %q: %w", file.Name, err)
	}

	text, err := chat.ExtractChatText(data, s.pattern)
	if err != nil {
		return "", fmt.Errorf("export %q: %w", file.Name, err)
	}

	return text, nil
}

func (s *Source) findArchive(ctx context.Context) (*drive.File, error) {
	list, err := s.service.Files.List().
		Q(buildQuery(s.folderID, s.archiveName)).
		OrderBy("modifiedTime desc").
		PageSize(1).
		Fields("files(id, name)").
		Context(ctx).
		Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 404 {
			return nil, fmt.Errorf("%w: folder %q not accessible", ErrArchiveNotFound, s.folderID)
		}
		return nil, fmt.Errorf("failed to list Drive folder: %w", err)
	}

	if len(list.Files) == 0 {
		return nil, ErrArchiveNotFound
	}

	return list.Files[0], nil
}

// buildQuery constructs the Drive search query: an exact name match
// when configured, otherwise any zip in the folder.
func buildQuery(folderID, archiveName string) string {
	if archiveName != "" {
		return fmt.Sprintf("'%s' in parents and name = '%s' and trashed = false", folderID, archiveName)
	}
	return fmt.Sprintf("'%s' in parents and mimeType = 'application/zip' and trashed = false", folderID)
}
