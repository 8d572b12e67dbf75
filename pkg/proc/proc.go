package proc

import (
	"flag"
	"fmt"
	"path"

	"golang.org/x/sys/unix"
)

var (
	procPath = flag.String("proc-path", "/proc", "Path to proc directory")
	hostPath = flag.String("host-path", "/", "The host directory. Useful in container.")
)

func ProcPath(paths ...string) string {
	return path.Join(append([]string{*procPath}, paths...)...)
}

func HostProcPath(paths ...string) string {
	if *hostPath == "" || *hostPath == "/" {
		return ProcPath(paths...)
	}
	return path.Join(append([]string{*hostPath, *procPath}, paths...)...)
}

// ModulePath returns a readable path of a file mapped by pid. Files are
// looked up through /proc/<pid>/root first so that processes in other
// mount namespaces resolve; the plain path is the fallback.
func ModulePath(pid int, fpath string) string {
	rooted := HostProcPath(fmt.Sprintf("%d/root", pid), fpath)
	if unix.Access(rooted, unix.R_OK) == nil {
		return rooted
	}
	return fpath
}
