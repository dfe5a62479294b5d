// Package imdb reads the IMDb non-commercial TSV datasets
// (name.basics, title.basics, title.principals), plain or gzipped.
package imdb

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// null is the dataset's marker for a missing value.
const null = `\N`

// Name is a row of name.basics.
type Name struct {
	ID   string
	Name string
}

// Title is a row of title.basics.
type Title struct {
	ID   string
	Type string
	Name string
	Year string
}

// Principal is a row of title.principals.
type Principal struct {
	TitleID  string
	PersonID string
	Category string
}

// IsCast reports whether the principal appeared on screen.
func (p Principal) IsCast() bool {
	switch p.Category {
	case "actor", "actress", "self":
		return true
	}
	return false
}

// Open opens a dataset file, decompressing it when it starts with the gzip magic.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReaderSize(f, 1<<16)
	magic, _ := br.Peek(2)
	if !bytes.Equal(magic, []byte{0x1f, 0x8b}) {
		return readCloser{Reader: br, close: f.Close}, nil
	}
	zr, err := gzip.NewReader(br)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return readCloser{Reader: zr, close: func() error {
		zerr := zr.Close()
		if err := f.Close(); err != nil {
			return err
		}
		return zerr
	}}, nil
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r readCloser) Close() error { return r.close() }

// ReadNames calls fn for each row of name.basics.
func ReadNames(r io.Reader, fn func(Name) error) error {
	return scan(r, []string{"nconst", "primaryName"}, func(col []string) error {
		return fn(Name{ID: col[0], Name: col[1]})
	})
}

// ReadTitles calls fn for each row of title.basics.
func ReadTitles(r io.Reader, fn func(Title) error) error {
	return scan(r, []string{"tconst", "titleType", "primaryTitle", "startYear"}, func(col []string) error {
		return fn(Title{ID: col[0], Type: col[1], Name: col[2], Year: col[3]})
	})
}

// ReadPrincipals calls fn for each row of title.principals.
func ReadPrincipals(r io.Reader, fn func(Principal) error) error {
	return scan(r, []string{"tconst", "nconst", "category"}, func(col []string) error {
		return fn(Principal{TitleID: col[0], PersonID: col[1], Category: col[2]})
	})
}

// scan reads a header line, then hands fn the wanted columns of every row in
// the order given. Missing values come back as "".
func scan(r io.Reader, want []string, fn func([]string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return err
		}
		return fmt.Errorf("missing header")
	}
	header := strings.Split(sc.Text(), "\t")
	idx := make([]int, len(want))
	for i, name := range want {
		idx[i] = -1
		for j, h := range header {
			if h == name {
				idx[i] = j
				break
			}
		}
		if idx[i] < 0 {
			return fmt.Errorf("missing column %q", name)
		}
	}

	out := make([]string, len(want))
	for line := 2; sc.Scan(); line++ {
		fields := strings.Split(sc.Text(), "\t")
		for i, j := range idx {
			if j >= len(fields) {
				return fmt.Errorf("line %d: %d fields, want at least %d", line, len(fields), j+1)
			}
			v := fields[j]
			if v == null {
				v = ""
			}
			out[i] = v
		}
		if err := fn(out); err != nil {
			return err
		}
	}
	return sc.Err()
}
