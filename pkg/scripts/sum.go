package scripts

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
)

type (
	// SumFile records a hash per script. Each script's hash incorporates the hash of
	// the script before it, so reordering scripts changes every later hash as well
	// as the total.
	SumFile struct {
		files     []sumEntry
		TotalHash string
	}

	sumEntry struct {
		Name string
		Hash []byte
	}
)

// NewSumFile creates an empty SumFile.
func NewSumFile() *SumFile {
	return &SumFile{}
}

// Sum hashes the content of every script, in order.
//
// Example:
//
//	list, _ := scripts.Discover("server/db")
//	sum, err := scripts.Sum(list)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	_, _ = sum.WriteTo(os.Stdout)
func Sum(list []*Script) (*SumFile, error) {
	sum := NewSumFile()
	for _, s := range list {
		if err := sum.addFile(s); err != nil {
			return nil, err
		}
	}

	return sum, nil
}

// Add hashes the content read from r under name.
func (s *SumFile) Add(name string, r io.Reader) error {
	hasher := sha256.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return errors.Wrapf(err, "failed to hash: %s", name)
	}

	if len(s.files) > 0 {
		hasher.Write(s.files[len(s.files)-1].Hash)
	}

	s.files = append(s.files, sumEntry{Name: name, Hash: hasher.Sum(nil)})
	s.computeTotalHash()
	return nil
}

// Files returns the number of hashed scripts.
func (s *SumFile) Files() int {
	return len(s.files)
}

// Hash returns the h1 hash recorded for name.
func (s *SumFile) Hash(name string) (string, bool) {
	for _, f := range s.files {
		if f.Name == name {
			return h1(f.Hash), true
		}
	}

	return "", false
}

// WriteTo writes the total hash followed by one "<name> <hash>" line per script.
//
// Example output:
//
//	h1:dG90YWxoYXNoZXhhbXBsZQ==
//	schema.sql h1:dGVzdGRhdGE=
//	employees/seed.sql h1:bW9yZXRlc3Q=
func (s *SumFile) WriteTo(w io.Writer) (int64, error) {
	var total int64

	n, err := fmt.Fprintf(w, "%s\n", s.TotalHash)
	if err != nil {
		return total, err
	}
	total += int64(n)

	for _, f := range s.files {
		n, err := fmt.Fprintf(w, "%s %s\n", f.Name, h1(f.Hash))
		if err != nil {
			return total, err
		}
		total += int64(n)
	}

	return total, nil
}

func (s *SumFile) addFile(script *Script) error {
	f, err := os.Open(script.Path)
	if err != nil {
		return errors.Wrapf(err, "failed to open: %s", script.Path)
	}
	defer func() { _ = f.Close() }()

	return s.Add(script.Rel, f)
}

func (s *SumFile) computeTotalHash() {
	if len(s.files) == 0 {
		s.TotalHash = ""
		return
	}

	hasher := sha256.New()
	for _, f := range s.files {
		hasher.Write(f.Hash)
	}

	s.TotalHash = h1(hasher.Sum(nil))
}

func h1(hash []byte) string {
	return "h1:" + base64.StdEncoding.EncodeToString(hash)
}
