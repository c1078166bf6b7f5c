package ctrl

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// Cleanup removes stale local client sockets from clientDir and returns the
// number removed.
//
// A socket is stale when it belongs to this process (leftover from an earlier
// session whose Close never ran) or when its owning process no longer exists.
// Call it only while this process has no open control connections, since
// sockets of live connections match the current pid too.
func Cleanup(clientDir string) (int, error) {
	entries, err := os.ReadDir(clientDir)
	if err != nil {
		return 0, err
	}

	ownPid := os.Getpid()
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		pid, ok := socketOwner(entry.Name())
		if !ok {
			continue
		}

		if pid != ownPid {
			exists, err := process.PidExists(int32(pid))
			if err != nil || exists {
				continue
			}
		}

		if err := os.Remove(filepath.Join(clientDir, entry.Name())); err == nil {
			removed++
		}
	}

	return removed, nil
}

// socketOwner extracts the owning pid from a local socket name of the form
// wpactl_<pid>-<id>.
func socketOwner(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, localPrefix)
	if !ok {
		return 0, false
	}

	pidStr, _, ok := strings.Cut(rest, "-")
	if !ok {
		return 0, false
	}

	pid, err := strconv.Atoi(pidStr)
	if err != nil || pid <= 0 {
		return 0, false
	}

	return pid, true
}
