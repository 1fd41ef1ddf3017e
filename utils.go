package detprep

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// imageExts are the recognized image file extensions, lower case.
var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".webp": true,
}

// labelExt is the label file extension.
const labelExt = ".txt"

// isImage reports whether path has an image extension, ignoring case.
func isImage(path string) bool {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}

// stem returns the file name of path without its directory and last extension.
func stem(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

// imagesInDir returns all regular image files found directly in directory dirPath, sorted by
// path.
func imagesInDir(dirPath string) ([]string, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read directory %q", dirPath)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		// Must be a regular file or a symlink.
		if e.IsDir() || (!e.Type().IsRegular() && e.Type()&os.ModeSymlink == 0) {
			continue
		}
		if isImage(e.Name()) {
			files = append(files, filepath.Join(dirPath, e.Name()))
		}
	}
	sort.Strings(files)

	return files, nil
}

// mapStemsToPaths maps the stems of the given file paths to the paths. When two files share a
// stem, the first one in filePaths wins and the other is logged.
func mapStemsToPaths(filePaths []string) map[string]string {
	mapping := make(map[string]string, len(filePaths))
	for _, path := range filePaths {
		s := stem(path)
		if prev, found := mapping[s]; found {
			klog.Warningf("Ignoring %q, stem %q already used by %q", path, s, prev)
			continue
		}
		mapping[s] = path
	}

	return mapping
}

// walkFiles returns all regular files below root, recursively, in lexical order.
func walkFiles(root string) (files []string, err error) {
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to walk %q", root)
	}

	return files, nil
}

// readLines returns a slice of lines read from the file at path.
func readLines(path string) (lines []string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read file %q", path)
	}
	defer closeWithErrCheck(file, &err)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read %q as lines", path)
	}

	return lines, nil
}

// copyFile copies the file at src into the directory dstDir, keeping its base name. Returns the
// destination path and the number of bytes copied.
func copyFile(src, dstDir string) (dst string, n int64, err error) {
	in, err := os.Open(src)
	if err != nil {
		return "", 0, errors.Wrapf(err, "cannot open %q", src)
	}
	defer closeWithErrCheck(in, &err)

	dst = filepath.Join(dstDir, filepath.Base(src))
	out, err := os.Create(dst)
	if err != nil {
		return "", 0, errors.Wrapf(err, "cannot create %q", dst)
	}
	defer closeWithErrCheck(out, &err)

	if n, err = io.Copy(out, in); err != nil {
		return "", 0, errors.Wrapf(err, "failed to copy %q to %q", src, dst)
	}

	return dst, n, nil
}

// exists reports whether a file or directory exists at path.
func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// closeWithErrCheck calls c.Close(). If it returns an error, and (*e == nil), e is set to that
// error.
func closeWithErrCheck(c io.Closer, e *error) {
	err := c.Close()
	if err != nil && *e == nil {
		*e = err
	}
}
