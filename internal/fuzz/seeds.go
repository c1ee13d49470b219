package fuzztests

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

const maxSeedBytes = 64 << 10

var languageSeeds = []string{
	"export com.x.Book\n\nBookView {\n    #allScalars\n    -tenant\n}\n",
	"export com.x.Book\n    -> package com.x.dto\n\nimport com.x.{Author as A, Store}\n",
	"input BookInput {\n    id(store)\n    authors {\n        firstName\n    }\n}\n",
	"specification BookSpec {\n    like/i(name)\n    ge(price) as minPrice\n    flat(store) {\n        as(^ -> store) { name }\n    }\n}\n",
	"/** doc */\n@Deprecated(\"x\")\nabstract BookView implements Base<String> {\n    name?\n    price!\n    children*\n    tags: List<String>\n}\n",
	"BookView {\n    parent {\n        name\n    }\n    !where(name = 'x' and price > 10)\n    !orderBy(name desc)\n    !depth(3)\n}\n",
	"fixed dynamic BookView {\n    enum status {\n        ACTIVE: 1\n        INACTIVE: 0\n    }\n    name as title\n}\n",
	"BookView { name",
	"export",
	"import com.{}",
	"A { as(",
	"/* unterminated",
	"B { @ # - ! * ? ^ $ }",
}

func addCorpusSeeds(f *testing.F) {
	for _, s := range languageSeeds {
		f.Add([]byte(s))
	}
	addTestdataSeeds(f)
}

// addTestdataSeeds adds every .dto file under the repository testdata tree.
func addTestdataSeeds(f *testing.F) {
	root := filepath.Join("..", "..", "testdata")
	if _, err := os.Stat(root); err != nil {
		return
	}
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() || filepath.Ext(path) != ".dto" {
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		src, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		f.Add(clampSeed(src))
		return nil
	})
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:maxSeedBytes]...)
}
