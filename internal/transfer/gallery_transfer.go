package transfer

import "github.com/maheshrc27/walk-gallery/internal/models"

type GalleryPoem struct {
	Text        string `json:"text"`
	Fingerprint string `json:"fingerprint"`
}

// GalleryResponse lists posts newest first. Poem is absent when nothing is
// cached and no generation happened this cycle.
type GalleryResponse struct {
	Posts  []*models.Post `json:"posts"`
	Poem   *GalleryPoem   `json:"poem,omitempty"`
	Commit string         `json:"commit,omitempty"`
	Notice string         `json:"notice,omitempty"`
}
