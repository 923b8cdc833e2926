//go:build unix

package log

import (
	"bytes"
	"log/slog"

	"golang.org/x/sys/unix"
)

func GetOSInfo() []any {
	attrs := runtimeAttrs()

	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return append(attrs, slog.String("uname_error", err.Error()))
	}
	return append(attrs,
		slog.String("kernel", cstring(uts.Sysname[:])+" "+cstring(uts.Release[:])),
		slog.String("machine", cstring(uts.Machine[:])),
		slog.String("node", cstring(uts.Nodename[:])),
	)
}

func cstring(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(bytes.TrimSpace(b))
}
