package qpcr

import (
	"os/user"
	"path/filepath"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/kardianos/osext"
)

// PanelDirName is the folder, next to the executable, where panels live unless
// told otherwise.
const PanelDirName = "panels"

// ExpandHome expands ~ to its proper path, where appropriate. If the current
// user cannot be determined the path is returned unchanged.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		usr, err := user.Current()
		if err != nil {
			return path
		}
		path = filepath.Join(usr.HomeDir, path[2:])
	}

	return path
}

// DefaultPanelDir is the panels folder beside the running binary.
func DefaultPanelDir() (string, error) {
	folder, err := osext.ExecutableFolder()
	if err != nil {
		return "", pfx.Err(err)
	}

	return filepath.Join(folder, PanelDirName), nil
}
