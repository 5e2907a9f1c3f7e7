package wannier

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Companion file patterns, matched in the directory of the output log
const (
	BandPattern = "*band.dat"
	DOSPattern  = "*dos.dat"
	HrPattern   = "*hr.dat"
	WinPattern  = "*.win"
)

// FileSet is one run: the output log and the data files written next to it.
// Each companion slice lists candidates with the most likely file first.
type FileSet struct {
	Wout string
	Band []string
	DOS  []string
	Hr   []string
	Win  []string
}

// Seedname returns the common file prefix of the run
func (fs FileSet) Seedname() string {
	return strings.TrimSuffix(filepath.Base(fs.Wout), filepath.Ext(fs.Wout))
}

// Discover finds the companion files of the output log at wout
func Discover(wout string) (FileSet, error) {
	info, err := os.Stat(wout)
	if err != nil {
		return FileSet{}, err
	}
	if info.IsDir() {
		return FileSet{}, fmt.Errorf("%s is a directory", wout)
	}

	fs := FileSet{Wout: wout}
	dir := filepath.Dir(wout)
	seed := fs.Seedname()

	for _, c := range []struct {
		pattern string
		out     *[]string
	}{
		{BandPattern, &fs.Band},
		{DOSPattern, &fs.DOS},
		{HrPattern, &fs.Hr},
		{WinPattern, &fs.Win},
	} {
		matches, err := filepath.Glob(filepath.Join(dir, c.pattern))
		if err != nil {
			return FileSet{}, err
		}
		*c.out = preferSeed(matches, seed)
	}
	return fs, nil
}

// DiscoverDir returns a file set for every output log in dir
func DiscoverDir(dir string) ([]FileSet, error) {
	wouts, err := filepath.Glob(filepath.Join(dir, "*.wout"))
	if err != nil {
		return nil, err
	}
	sort.Strings(wouts)

	sets := make([]FileSet, 0, len(wouts))
	for _, wout := range wouts {
		fs, err := Discover(wout)
		if err != nil {
			return nil, err
		}
		sets = append(sets, fs)
	}
	return sets, nil
}

// preferSeed orders files starting with seed first, keeping lexical order otherwise
func preferSeed(files []string, seed string) []string {
	sort.SliceStable(files, func(i, j int) bool {
		pi := strings.HasPrefix(filepath.Base(files[i]), seed)
		pj := strings.HasPrefix(filepath.Base(files[j]), seed)
		return pi && !pj
	})
	return files
}
