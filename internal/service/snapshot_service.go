package service

import (
	"context"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/maheshrc27/walk-gallery/internal/models"
	"github.com/maheshrc27/walk-gallery/internal/poem"
	"github.com/maheshrc27/walk-gallery/internal/repository"
)

var snapshotTemplate = template.Must(template.New("gallery").Funcs(template.FuncMap{
	"upper": strings.ToUpper,
	"src":   mediaSource,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Walk Gallery</title>
<style>
body { font-family: Georgia, serif; max-width: 720px; margin: 3rem auto; padding: 0 1rem; color: #222; }
.poem { white-space: pre-line; font-style: italic; border-left: 3px solid #999; padding-left: 1rem; margin-bottom: 3rem; }
.post { border-bottom: 1px solid #ddd; padding: 1.5rem 0; }
.word { font-weight: bold; letter-spacing: 0.1em; }
img { max-width: 100%; }
.meta { color: #888; font-size: 0.8rem; }
</style>
</head>
<body>
<h1>Walk Gallery</h1>
{{if .Poem}}<div class="poem">{{.Poem}}</div>{{end}}
{{range .Posts}}<div class="post">
{{if .Content.Word}}<p class="word">{{upper .Content.Word}}</p>{{end}}
{{with .Content.Audio}}<audio controls src="{{src .}}"></audio>{{end}}
{{with .Content.Image}}<img src="{{src .}}" alt="{{.Name}}">{{end}}
{{with .Content.Drawing}}<img src="{{src .}}" alt="{{.Name}}">{{end}}
<p class="meta">{{.CreatedAtDisplay}}</p>
</div>
{{else}}<p>No walks yet.</p>
{{end}}<p class="meta">Generated {{.GeneratedAt}}</p>
</body>
</html>
`))

func mediaSource(m *models.MediaRef) template.URL {
	if m.Inline() {
		return template.URL("data:" + m.MimeType + ";base64," + m.Data)
	}
	return template.URL(m.URL)
}

// SnapshotService renders the gallery as a static page. It only shows a
// poem that is already cached and never triggers generation.
type SnapshotService struct {
	posts repository.PostRepository
	gate  *poem.Gate
	now   func() time.Time
}

func NewSnapshotService(posts repository.PostRepository, gate *poem.Gate) *SnapshotService {
	return &SnapshotService{posts: posts, gate: gate, now: time.Now}
}

func (s *SnapshotService) Render(ctx context.Context, w io.Writer) error {
	posts, err := s.posts.List(ctx)
	if err != nil {
		return err
	}

	var text string
	if s.gate != nil {
		if res := s.gate.Peek(ctx, poem.Words(posts)); res.Present() {
			text = res.Text
		}
	}

	return snapshotTemplate.Execute(w, struct {
		Posts       []*models.Post
		Poem        string
		GeneratedAt string
	}{
		Posts:       posts,
		Poem:        text,
		GeneratedAt: s.now().Format(models.DisplayLayout),
	})
}
