// Package chat acquires WhatsApp chat export text: from a local file or
// from a Google Drive folder, archived or plain.
package chat

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ErrNoChatMember means the archive contained no member matching the
// configured chat-file pattern.
var ErrNoChatMember = errors.New("no chat transcript found in archive")

// maxMemberSize bounds a single archive member read. WhatsApp exports
// with media stripped stay well under this.
const maxMemberSize = 64 << 20

var zipMagic = []byte{'P', 'K', 0x03, 0x04}

// IsZip reports whether data starts with a ZIP local-file header.
func IsZip(data []byte) bool {
	return bytes.HasPrefix(data, zipMagic)
}

// ExtractChatText returns the transcript from raw export bytes. ZIP
// archives are searched for the first member matching pattern
// (WhatsApp names it "_chat.txt" or "WhatsApp Chat with <name>.txt");
// anything else is assumed to be the transcript itself.
func ExtractChatText(data []byte, pattern *regexp.Regexp) (string, error) {
	if !IsZip(data) {
		return string(data), nil
	}

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}

	for _, member := range reader.File {
		if member.FileInfo().IsDir() {
			continue
		}
		name := member.Name
		if idx := strings.LastIndex(name, "/"); idx >= 0 {
			name = name[idx+1:]
		}
		if !pattern.MatchString(name) {
			continue
		}

		rc, err := member.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open archive member %q: %w", member.Name, err)
		}
		content, err := io.ReadAll(io.LimitReader(rc, maxMemberSize))
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("failed to read archive member %q: %w", member.Name, err)
		}

		return string(content), nil
	}

	return "", ErrNoChatMember
}
