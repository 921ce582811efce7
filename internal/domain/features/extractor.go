// Package features computes the feature set describing a file in the
// navigation context of a project.
package features

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/GriffinCanCode/fileprediction/internal/domain/project"
	"github.com/GriffinCanCode/fileprediction/internal/shared/types"
	"github.com/gabriel-vasile/mimetype"
)

// Feature names
const (
	SameDir         = "same_dir"
	SameExt         = "same_ext"
	InRef           = "in_ref"
	PathDistance    = "path_distance"
	CommonPrefix    = "common_prefix"
	FileSize        = "file_size"
	MimeType        = "mime_type"
	Opened          = "opened"
	SelectedBefore  = "selected_before"
	RecentlyClosed  = "recently_closed"
	HistoryPosition = "history_position"
	HistoryUsage    = "history_usage"
	NameSimilarity  = "name_similarity"
	HasPrev         = "has_prev"
)

// ContextView is the part of the navigation context features read
type ContextView interface {
	IsOpen(url string) bool
	WasRecentlyClosed(url string) bool
}

// HistoryView is the part of the history features read
type HistoryView interface {
	Position(url string) int
	Usage(url string) int
}

// Extractor computes features for one project
type Extractor struct {
	nav     ContextView
	history HistoryView
}

// NewExtractor creates an extractor reading nav and history. Either may be nil.
func NewExtractor(nav ContextView, history HistoryView) *Extractor {
	return &Extractor{nav: nav, history: history}
}

// CalculateFileFeatures describes file relative to prev and refs
func (e *Extractor) CalculateFileFeatures(ctx context.Context, p *project.Project, file types.File, refs types.References, prev types.Option[types.File]) (types.Features, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	url := file.URL()
	f := types.Features{
		InRef:    refs.Contains(url),
		FileSize: int64(-1),
		MimeType: "",
	}

	abs := p.Resolve(file.Path)
	if info, err := os.Stat(abs); err == nil && info.Mode().IsRegular() {
		f[FileSize] = info.Size()
		if mt, err := mimetype.DetectFile(abs); err == nil {
			f[MimeType] = mt.String()
		}
	}

	prevFile, hasPrev := prev.Get()
	f[HasPrev] = hasPrev
	if hasPrev {
		from := p.Rel(prevFile.Path)
		to := p.Rel(file.Path)
		f[SameDir] = filepath.Dir(from) == filepath.Dir(to)
		f[SameExt] = prevFile.Ext() == file.Ext()
		f[PathDistance] = Distance(from, to)
		f[CommonPrefix] = CommonDepth(from, to)
		f[NameSimilarity] = Similarity(stem(prevFile.Name()), stem(file.Name()))
	} else {
		f[SameDir] = false
		f[SameExt] = false
		f[PathDistance] = -1
		f[CommonPrefix] = 0
		f[NameSimilarity] = 0.0
	}

	f[Opened] = e.nav != nil && e.nav.IsOpen(url)
	f[RecentlyClosed] = e.nav != nil && e.nav.WasRecentlyClosed(url)

	position, usage := -1, 0
	if e.history != nil {
		position = e.history.Position(url)
		usage = e.history.Usage(url)
	}
	f[SelectedBefore] = position >= 0
	f[HistoryPosition] = position
	f[HistoryUsage] = usage

	return f, nil
}

// CommonDepth counts the leading directories shared by two paths
func CommonDepth(a, b string) int {
	da, db := dirParts(a), dirParts(b)
	n := 0
	for n < len(da) && n < len(db) && da[n] == db[n] {
		n++
	}
	return n
}

// Distance is the number of directory hops between the parents of two paths
func Distance(a, b string) int {
	common := CommonDepth(a, b)
	return len(dirParts(a)) - common + len(dirParts(b)) - common
}

// Similarity is the Dice coefficient of the character bigrams of a and b
func Similarity(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == b {
		return 1
	}
	if len(a) < 2 || len(b) < 2 {
		return 0
	}

	grams := make(map[string]int, len(a)-1)
	for i := 0; i < len(a)-1; i++ {
		grams[a[i:i+2]]++
	}
	shared := 0
	for i := 0; i < len(b)-1; i++ {
		g := b[i : i+2]
		if grams[g] > 0 {
			grams[g]--
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(a)-1+len(b)-1)
}

func dirParts(path string) []string {
	dir := filepath.ToSlash(filepath.Dir(path))
	if dir == "." || dir == "/" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(dir, "/"), "/")
}

func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
