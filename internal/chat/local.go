package chat

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"go.uber.org/zap"
)

// LocalSource reads an export from disk, mainly for dry runs and tests.
type LocalSource struct {
	path    string
	pattern *regexp.Regexp
	logger  *zap.Logger
}

func NewLocalSource(path string, pattern *regexp.Regexp, logger *zap.Logger) *LocalSource {
	return &LocalSource{
		path:    path,
		pattern: pattern,
		logger:  logger,
	}
}

// Fetch reads the file and extracts the transcript from it. A missing
// file is a fatal setup error, same as a missing Drive archive.
func (s *LocalSource) Fetch(_ context.Context) (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("failed to read chat export %q: %w", s.path, err)
	}

	text, err := ExtractChatText(data, s.pattern)
	if err != nil {
		return "", fmt.Errorf("chat export %q: %w", s.path, err)
	}

	s.logger.Debug("loaded local chat export",
		zap.String("path", s.path),
		zap.Int("bytes", len(text)))

	return text, nil
}
