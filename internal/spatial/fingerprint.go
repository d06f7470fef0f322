package spatial

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"os"
)

// Fingerprint digests the source exports: every file's bytes in order,
// then every file's modification time as unix seconds, little-endian.
// Missing files are skipped so a partial export set still fingerprints.
// Any change to content or timestamps yields a different digest.
func Fingerprint(paths []string) (string, error) {
	h := sha256.New()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", err
		}
		h.Write(data)
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", err
		}
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(info.ModTime().Unix()))
		h.Write(buf[:])
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
