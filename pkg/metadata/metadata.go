// Package metadata writes the JSON sidecar stored next to every downloaded item.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"igharvest/pkg/models"
)

// Sidecar describes a downloaded item
type Sidecar struct {
	ID           string          `json:"id"`
	Shortcode    string          `json:"shortcode,omitempty"`
	Kind         models.ItemKind `json:"kind"`
	Owner        Owner           `json:"owner"`
	TakenAt      time.Time       `json:"taken_at"`
	DownloadedAt time.Time       `json:"downloaded_at"`
	Caption      string          `json:"caption,omitempty"`
	Media        []MediaFile     `json:"media"`
}

// Owner represents the media owner
type Owner struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username"`
}

// MediaFile links a written file to its source
type MediaFile struct {
	File    string `json:"file"`
	URL     string `json:"url"`
	IsVideo bool   `json:"is_video"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
}

// FromItem builds a sidecar; files[i] is the path written for item.Media[i].
func FromItem(item models.Item, files []string) *Sidecar {
	s := &Sidecar{
		ID:           item.ID,
		Shortcode:    item.Shortcode,
		Kind:         item.Kind,
		Owner:        Owner{ID: item.OwnerID, Username: item.Owner},
		TakenAt:      item.TakenAt.UTC(),
		DownloadedAt: time.Now().UTC(),
		Caption:      item.Caption,
	}
	for i, m := range item.Media {
		mf := MediaFile{URL: m.URL, IsVideo: m.IsVideo, Width: m.Width, Height: m.Height}
		if i < len(files) {
			mf.File = filepath.Base(files[i])
		}
		s.Media = append(s.Media, mf)
	}
	return s
}

// Save writes the sidecar as <stem>.json
func (s *Sidecar) Save(stem string) (string, error) {
	path := stem + ".json"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write metadata file: %w", err)
	}

	return path, nil
}

// Load reads a sidecar written by Save
func Load(stem string) (*Sidecar, error) {
	data, err := os.ReadFile(stem + ".json")
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	var s Sidecar
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return &s, nil
}

// FormattedCaption returns the caption truncated for display
func (s *Sidecar) FormattedCaption(maxLength int) string {
	runes := []rune(s.Caption)
	if len(runes) <= maxLength || maxLength < 4 {
		return s.Caption
	}
	return string(runes[:maxLength-3]) + "..."
}
