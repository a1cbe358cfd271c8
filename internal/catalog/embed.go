package catalog

import (
	"embed"
	"io/fs"
)

// data holds the built-in catalog: catalog.yaml, departments.yaml,
// generators.yaml and the fragment content files.
//
//go:embed data
var data embed.FS

// Embedded returns the built-in catalog as a filesystem rooted at its data
// directory.
func Embedded() fs.FS {
	sub, err := fs.Sub(data, "data")
	if err != nil {
		panic(err)
	}
	return sub
}
