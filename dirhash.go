package main

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/segmentio/fasthash/fnv1a"
	"github.com/zeebo/blake3"
	"golang.org/x/mod/sumdb/dirhash"
)

func hashFile(path string) ([]byte, error) {
	h := blake3.New()
	r, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	_, err = io.Copy(h, r)
	r.Close()
	if err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

func hashDir(dir, prefix string) ([]byte, error) {
	h1, err := dirhash.HashDir(dir, prefix, HashBlake3)
	if err != nil {
		return nil, err
	}
	return []byte(h1), nil
}

// / Hash a file (or directory tree) down to a 64-bit digest.  Returns
// / notExist=true without error when the path is absent.
func ContentDigest(path string) (digest uint64, notExist bool, err error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) || os.IsPermission(err) {
			return 0, true, nil
		}
		return 0, true, err
	}
	var hash []byte
	if info.IsDir() {
		hash, err = hashDir(path, path)
	} else {
		hash, err = hashFile(path)
	}
	if err != nil {
		return 0, true, err
	}
	h := fnv1a.Init64
	h = fnv1a.AddBytes64(h, hash)
	return h, false, nil
}

// / Hash a single file's content, base64-encoded, for snapshot identity.
func HashSingleFile(path string) (string, error) {
	hash, err := hashFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "hashing %s", path)
	}
	return base64.StdEncoding.EncodeToString(hash), nil
}

// / Hash callback for dirhash.HashDir: the x/mod list-hash layout, but
// / over blake3.
func HashBlake3(files []string, open func(string) (io.ReadCloser, error)) (string, error) {
	h := blake3.New()
	files = append([]string(nil), files...)
	sort.Strings(files)
	for _, file := range files {
		if strings.Contains(file, "\n") {
			return "", errors.New("dirhash: filenames with newlines are not supported")
		}
		r, err := open(file)
		if err != nil {
			return "", err
		}
		hf := blake3.New()
		_, err = io.Copy(hf, r)
		r.Close()
		if err != nil {
			return "", err
		}
		fmt.Fprintf(h, "%x  %s\n", hf.Sum(nil), file)
	}
	return "h1:" + base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}
