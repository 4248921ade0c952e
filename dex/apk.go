package dex

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
)

var classesDexRE = regexp.MustCompile(`^classes(\d*)\.dex$`)

// Open reads a raw dex file or an APK. For APKs every classesN.dex entry is
// parsed and merged in multidex order.
func Open(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if IsDex(data) {
		file, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return file, nil
	}
	return OpenAPK(path)
}

// OpenAPK parses all classes*.dex entries of an APK.
func OpenAPK(path string) (*File, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer zr.Close()

	type entry struct {
		index int
		file  *zip.File
	}
	var entries []entry
	for _, f := range zr.File {
		m := classesDexRE.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		index := 1
		if m[1] != "" {
			if index, err = strconv.Atoi(m[1]); err != nil {
				continue
			}
		}
		entries = append(entries, entry{index: index, file: f})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s contains no classes.dex", path)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].index < entries[j].index })

	merged := &File{}
	for _, e := range entries {
		data, err := readZipFile(e.file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.file.Name, err)
		}
		file, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", e.file.Name, err)
		}
		merged.Classes = append(merged.Classes, file.Classes...)
	}
	return merged, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
