// Package files holds small filesystem helpers shared by the hub cache layer.
package files

import (
	"os"
	"os/user"
	"path"
	"strings"

	"github.com/pkg/errors"
)

// Exists returns true if the file or directory exists.
func Exists(filePath string) bool {
	_, err := os.Stat(filePath)
	return err == nil
}

// ReplaceTildeInDir expands a leading "~" or "~user" to the corresponding home
// directory. Paths without a tilde prefix are returned unchanged.
//
// It returns an error if the path names an unknown user (e.g. "~nobody42/...").
func ReplaceTildeInDir(dir string) (string, error) {
	if !strings.HasPrefix(dir, "~") {
		return dir, nil
	}
	userName := ""
	if dir != "~" && !strings.HasPrefix(dir, "~/") {
		rest := dir[1:]
		if sepIdx := strings.IndexRune(rest, '/'); sepIdx >= 0 {
			userName = rest[:sepIdx]
		} else {
			userName = rest
		}
	}
	var usr *user.User
	var err error
	if userName == "" {
		usr, err = user.Current()
	} else {
		usr, err = user.Lookup(userName)
	}
	if err != nil {
		return dir, errors.Wrapf(err, "failed to lookup home directory for user in path %q", dir)
	}
	return path.Join(usr.HomeDir, dir[1+len(userName):]), nil
}
