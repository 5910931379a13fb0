package feed

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrNoSnapshots is returned when the drop folder holds no usable
// snapshot files.
var ErrNoSnapshots = errors.New("no snapshot files in drop folder")

// Drop is one snapshot file in the watched folder, with the
// observation date recovered from its name.
type Drop struct {
	Path string
	Name string
	Date time.Time
}

// Folder reads snapshot CSV drops from a local directory. It stands in
// for the remote drive the export lands on; retrieval stays confined
// here so the engine never touches the filesystem.
type Folder struct {
	dir       string
	substring string
}

// New returns a Folder watching dir. Only files whose name contains
// substring are considered; an empty substring accepts every CSV.
func New(dir, substring string) *Folder {
	return &Folder{dir: dir, substring: substring}
}

// List returns all matching drops in chronological order. Files whose
// name yields no date are ignored.
func (f *Folder) List() ([]Drop, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("read drop folder: %w", err)
	}

	var drops []Drop
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		if f.substring != "" && !strings.Contains(strings.ToLower(e.Name()), strings.ToLower(f.substring)) {
			continue
		}
		date, ok := DateFromFilename(e.Name())
		if !ok {
			continue
		}
		drops = append(drops, Drop{
			Path: filepath.Join(f.dir, e.Name()),
			Name: e.Name(),
			Date: date,
		})
	}
	if len(drops) == 0 {
		return nil, ErrNoSnapshots
	}
	sort.Slice(drops, func(i, j int) bool {
		if !drops[i].Date.Equal(drops[j].Date) {
			return drops[i].Date.Before(drops[j].Date)
		}
		return drops[i].Name < drops[j].Name
	})
	return drops, nil
}

// LatestPair returns the two most recent drops, previous first.
// previous is nil when only one drop exists (first run).
func (f *Folder) LatestPair() (previous, current *Drop, err error) {
	drops, err := f.List()
	if err != nil {
		return nil, nil, err
	}
	current = &drops[len(drops)-1]
	if len(drops) > 1 {
		previous = &drops[len(drops)-2]
	}
	return previous, current, nil
}

// Open opens a drop for reading; the caller closes it.
func (f *Folder) Open(d Drop) (*os.File, error) {
	file, err := os.Open(d.Path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", d.Name, err)
	}
	return file, nil
}

var (
	isoDatePattern   = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	monthDayPattern  = regexp.MustCompile(`(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)(\d{1,2})`)
	monthsByShortName = map[string]time.Month{
		"jan": time.January, "feb": time.February, "mar": time.March,
		"apr": time.April, "may": time.May, "jun": time.June,
		"jul": time.July, "aug": time.August, "sep": time.September,
		"oct": time.October, "nov": time.November, "dec": time.December,
	}
)

// DateFromFilename recovers the observation date from a drop filename.
// It accepts an ISO date anywhere in the name, or the export's
// "feb3"-style month+day (assumed current year).
func DateFromFilename(name string) (time.Time, bool) {
	lower := strings.ToLower(name)

	if m := isoDatePattern.FindStringSubmatch(lower); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
		}
	}
	if m := monthDayPattern.FindStringSubmatch(lower); m != nil {
		day, _ := strconv.Atoi(m[2])
		if day >= 1 && day <= 31 {
			return time.Date(time.Now().UTC().Year(), monthsByShortName[m[1]], day, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}
