//go:build !unix

package log

func GetOSInfo() []any {
	return runtimeAttrs()
}
