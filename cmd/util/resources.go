package util

import (
	"os"

	"github.com/TuftsBCB/backbone/ncolib"
	"github.com/TuftsBCB/backbone/pdb"
	"github.com/TuftsBCB/backbone/reconstruct"
)

// Library opens a saved backbone library. An empty path means the built in
// library.
func Library(path string) *ncolib.Library {
	if path == "" {
		return ncolib.Default()
	}
	f := OpenFile(path)
	defer f.Close()

	lib, err := ncolib.Open(f)
	Assert(err, "Could not open backbone library '%s'", path)
	return lib
}

func PDBRead(path string) *pdb.Entry {
	entry, err := pdb.ReadFile(path)
	Assert(err, "Could not open PDB file '%s'", path)
	return entry
}

// Config loads a configuration file, or returns the defaults when path is
// empty.
func Config(path string) reconstruct.Config {
	if path == "" {
		return reconstruct.DefaultConfig()
	}
	cfg, err := reconstruct.LoadConfig(path)
	Assert(err, "Could not load configuration")
	return cfg
}

func OpenFile(path string) *os.File {
	f, err := os.Open(path)
	Assert(err, "Could not open file '%s'", path)
	return f
}

func CreateFile(path string) *os.File {
	f, err := os.Create(path)
	Assert(err, "Could not create file '%s'", path)
	return f
}
