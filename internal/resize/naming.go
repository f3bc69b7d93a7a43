package resize

import (
	"path"
	"path/filepath"
	"strings"
)

// ResizedKey returns the object key for the output of one size:
// <dir>/[<resizedPath>/]<stem>_<size><ext>.
func ResizedKey(key, resizedPath, size, ext string) string {
	dir := path.Dir(key)
	base := path.Base(key)
	stem := strings.TrimSuffix(base, path.Ext(base))
	return path.Join(dir, resizedPath, stem+"_"+size+ext)
}

// ScratchPath maps an object key to a local path under root, keeping the
// key's directory structure. The key is anchored at root so ".." segments
// cannot escape it.
func ScratchPath(root, key string) string {
	return filepath.Join(root, filepath.FromSlash(path.Clean("/"+key)))
}

// IsResizedName reports whether key looks like an output of ResizedKey for
// one of sizes. It is used where no metadata marker is available, such as
// local files.
func IsResizedName(key string, sizes []string) bool {
	base := path.Base(key)
	stem := strings.TrimSuffix(base, path.Ext(base))
	for _, s := range sizes {
		if strings.HasSuffix(stem, "_"+s) {
			return true
		}
	}
	return false
}
