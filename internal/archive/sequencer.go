package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
)

var (
	// ErrNotDirectory is returned when the image path exists but is a file.
	ErrNotDirectory = errors.New("image path exists and is not a directory")

	// ErrNoCapture is returned by PreviousPath before any NextPath call.
	ErrNoCapture = errors.New("no image path has been handed out yet")
)

var imageName = regexp.MustCompile(`^image(\d+)\.jpg$`)

// Sequencer hands out monotonically numbered image paths
// (<dir>/image<N>.jpg), resuming after the highest index already on disk.
// It is owned by the main loop and is not safe for concurrent use.
type Sequencer struct {
	dir      string
	next     int
	previous int // 0 until NextPath has been called
}

// NewSequencer scans dir for image<N>.jpg files. The directory is created
// when it does not exist yet.
func NewSequencer(dir string) (*Sequencer, error) {
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create image directory: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("stat image directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("%s: %w", dir, ErrNotDirectory)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read image directory: %w", err)
	}

	highest := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n, ok := ParseIndex(e.Name())
		if ok && n > highest {
			highest = n
		}
	}

	return &Sequencer{dir: dir, next: highest + 1}, nil
}

// ParseIndex extracts N from a file named image<N>.jpg.
func ParseIndex(name string) (int, bool) {
	m := imageName.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Dir returns the directory images are written to.
func (s *Sequencer) Dir() string {
	return s.dir
}

// NextIndex returns the index the next NextPath call will use.
func (s *Sequencer) NextIndex() int {
	return s.next
}

// NextPath returns the path for the next image and advances the counter.
func (s *Sequencer) NextPath() string {
	n := s.next
	s.next++
	s.previous = n
	return s.pathFor(n)
}

// PreviousPath returns the path last returned by NextPath.
func (s *Sequencer) PreviousPath() (string, error) {
	if s.previous == 0 {
		return "", ErrNoCapture
	}
	return s.pathFor(s.previous), nil
}

func (s *Sequencer) pathFor(n int) string {
	return filepath.Join(s.dir, "image"+strconv.Itoa(n)+".jpg")
}
