package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Document is one source file loaded for indexing.
type Document struct {
	Path    string
	Content string
}

// LoadDocuments reads every .txt and .md file directly under dir.
func LoadDocuments(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read docs dir %s: %w", dir, err)
	}

	var docs []Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".txt" && ext != ".md" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read document %s: %w", path, err)
		}

		docs = append(docs, Document{Path: path, Content: string(data)})
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("no .txt or .md documents found in %s", dir)
	}
	return docs, nil
}
