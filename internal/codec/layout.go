package codec

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Well-known subfolders of a meeting directory.
const (
	TranscriptFolder  = "transcripts"
	MinutesFolder     = "minutes"
	AnnotationsFolder = "annotations"
	EvaluationsFolder = "evaluations"
)

// Prefixes used for derived files in the flat layout.
const (
	AlignmentPrefix  = "alignment+"
	EvaluationPrefix = "evaluation+"
)

// Layout locates the files of one meeting directory. A directory either has a
// dedicated subfolder per kind or keeps everything flat in the root; the
// choice is made per kind when the layout is resolved.
type Layout struct {
	Root string

	transcripts bool
	minutes     bool
	annotations bool
	evaluations bool
}

// Resolve inspects root once and records which subfolders exist.
func Resolve(root string) Layout {
	return Layout{
		Root:        root,
		transcripts: isDir(filepath.Join(root, TranscriptFolder)),
		minutes:     isDir(filepath.Join(root, MinutesFolder)),
		annotations: isDir(filepath.Join(root, AnnotationsFolder)),
		evaluations: isDir(filepath.Join(root, EvaluationsFolder)),
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// TranscriptPath returns the path of a transcript file by name.
func (l Layout) TranscriptPath(name string) string {
	return l.path(l.transcripts, TranscriptFolder, name)
}

// MinutesPath returns the path of a minutes file by name.
func (l Layout) MinutesPath(name string) string {
	return l.path(l.minutes, MinutesFolder, name)
}

// LinkName derives the alignment file name for a transcript/minutes pair.
func (l Layout) LinkName(transcript, minutes string) string {
	prefix := AlignmentPrefix
	if l.annotations {
		prefix = ""
	}
	return fmt.Sprintf("%s%s+%s", prefix, transcript, minutes)
}

// LinkPath returns the alignment file path for a transcript/minutes pair.
func (l Layout) LinkPath(transcript, minutes string) string {
	return l.path(l.annotations, AnnotationsFolder, l.LinkName(transcript, minutes))
}

// EvaluationName derives the evaluation file name for a transcript/minutes pair.
func (l Layout) EvaluationName(transcript, minutes string) string {
	prefix := EvaluationPrefix
	if l.evaluations {
		prefix = ""
	}
	return fmt.Sprintf("%s%s+%s", prefix, transcript, minutes)
}

// EvaluationPath returns the evaluation file path for a transcript/minutes pair.
func (l Layout) EvaluationPath(transcript, minutes string) string {
	return l.path(l.evaluations, EvaluationsFolder, l.EvaluationName(transcript, minutes))
}

func (l Layout) path(foldered bool, folder, name string) string {
	if foldered {
		return filepath.Join(l.Root, folder, name)
	}
	return filepath.Join(l.Root, name)
}

// TranscriptFiles lists candidate transcript files.
func (l Layout) TranscriptFiles() ([]string, error) {
	return l.list(l.transcripts, TranscriptFolder, "transcript*.txt")
}

// MinutesFiles lists candidate minutes files.
func (l Layout) MinutesFiles() ([]string, error) {
	return l.list(l.minutes, MinutesFolder, "minutes*.txt")
}

func (l Layout) list(foldered bool, folder, pattern string) ([]string, error) {
	var names []string
	if foldered {
		entries, err := os.ReadDir(filepath.Join(l.Root, folder))
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", folder, err)
		}
		for _, e := range entries {
			if e.IsDir() || strings.HasSuffix(e.Name(), CacheSuffix) {
				continue
			}
			names = append(names, e.Name())
		}
	} else {
		matches, err := filepath.Glob(filepath.Join(l.Root, pattern))
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
		for _, m := range matches {
			names = append(names, filepath.Base(m))
		}
	}
	sort.Strings(names)
	return names, nil
}

// CacheSuffix is appended to a source file name to form its embedding cache.
const CacheSuffix = ".embed"

// Scaffold creates a foldered meeting directory with empty transcript and
// minutes files.
func Scaffold(root string) error {
	for _, dir := range []string{TranscriptFolder, MinutesFolder, AnnotationsFolder, EvaluationsFolder} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	files := []string{
		filepath.Join(root, TranscriptFolder, "transcript.txt"),
		filepath.Join(root, MinutesFolder, "minutes.txt"),
	}
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			continue
		}
		if err := os.WriteFile(f, nil, 0o644); err != nil {
			return fmt.Errorf("create %s: %w", filepath.Base(f), err)
		}
	}
	return nil
}

// WriteFileAtomic writes through a temporary file in the same directory and
// renames it into place, so a failed write leaves the old file intact.
func WriteFileAtomic(path string, write func(f *os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", filepath.Base(path), err)
	}
	defer os.Remove(tmp.Name())
	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
