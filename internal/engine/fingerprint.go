package engine

import (
	"encoding/binary"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/minio/highwayhash"

	"github.com/jward/typegrep/internal/store"
)

var hashKey = []byte("0123456789ABCDEF0123456789ABCDEF")

func hash64(parts ...string) uint64 {
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		// Only fails for a key that is not 32 bytes long.
		panic(err)
	}
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

// statFingerprint is the default freshness policy: a file is unchanged when
// its path, size and modification time are. Content is not read.
func statFingerprint(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "missing:" + path
	}
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(info.Size()))
	binary.LittleEndian.PutUint64(buf[8:], uint64(info.ModTime().UnixNano()))
	return fmt.Sprintf("%016x", hash64(path, string(buf[:])))
}

// configHash identifies every build setting that changes what a cached
// analysis means. A different hash invalidates the whole cache.
func configHash(opts Options, tests bool) string {
	env := append([]string(nil), opts.Env...)
	sort.Strings(env)
	return fmt.Sprintf("%016x", hash64(
		store.SchemaVersion,
		strings.Join(opts.BuildFlags, " "),
		fmt.Sprint(tests),
		strings.Join(env, "\n"),
		os.Getenv("GOFLAGS"),
		os.Getenv("GOOS"),
		os.Getenv("GOARCH"),
	))
}

// fingerprint asks hook first and falls back to statFingerprint.
func fingerprint(hook FreshnessHook, path string) string {
	if hook != nil {
		if fp, ok := hook.Fingerprint(path); ok {
			return fp
		}
	}
	return statFingerprint(path)
}
