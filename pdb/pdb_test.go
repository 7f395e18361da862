package pdb

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TuftsBCB/backbone/chain"
	"github.com/TuftsBCB/structure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `HEADER    TEST
REMARK   1 A SMALL FRAGMENT
ATOM      1  N   MET A   1      27.340  24.430   2.614  1.00  9.67           N
ATOM      2  CA  MET A   1      26.266  25.413   2.842  1.00 10.38           C
ATOM      3  C   MET A   1      26.913  26.639   3.531  1.00  9.62           C
ATOM      4  O   MET A   1      27.886  26.463   4.263  1.00  9.62           O
ATOM      5  CB  MET A   1      25.112  24.880   3.649  1.00 13.77           C
ATOM      6  H   MET A   1      27.900  24.100   1.900  1.00  0.00           H
ATOM      7  N  AGLN A   2      26.335  27.770   3.258  0.50  9.27           N
ATOM      8  N  BGLN A   2      26.300  27.700   3.200  0.50  9.27           N
ATOM      9  CA  GLN A   2      26.850  29.021   3.898  1.00  9.07           C
HETATM   10  CA  MSE A   3      26.100  32.600   4.300  1.00  9.07           C
HETATM   11  O   HOH A 101      10.000  10.000  10.000  1.00  9.07           O
TER      12      MSE A   3
ATOM     13  CA  GLY B   5      30.000  30.000  30.000  1.00  9.07           C
ATOM     14  CA  GLY B   6      33.800  30.000  30.000  1.00  9.07           C
ENDMDL
ATOM     15  CA  GLY C   1       0.000   0.000   0.000  1.00  9.07           C
END
`

func TestRead(t *testing.T) {
	e, err := Read(strings.NewReader(sample), "sample.pdb")
	require.NoError(t, err)
	assert.Equal(t, "sample.pdb", e.Path)
	require.Len(t, e.Chains, 2)

	a := e.Chain('A')
	require.NotNil(t, a)
	assert.Equal(t, "MQM", a.Sequence())
	assert.Nil(t, e.Chain('C'))

	met := &a.Residues[0]
	assert.Equal(t, 1, met.Num)
	require.Len(t, met.Atoms, 5)
	for _, at := range met.Atoms {
		assert.True(t, at.Flags.Has(chain.Initial), at.Name)
		assert.NotEqual(t, "H", at.Name)
	}
	k, _ := met.Find("CB")
	assert.True(t, met.Atoms[k].Flags.Has(chain.SideChain))
	k, _ = met.Find("CA")
	assert.True(t, met.Atoms[k].Flags.Has(chain.Backbone))
	assert.True(t, met.HasCentroid)
	assert.Equal(t, structure.Coords{X: 25.112, Y: 24.880, Z: 3.649}, met.Centroid)

	// Only altloc A survives.
	gln := &a.Residues[1]
	require.Len(t, gln.Atoms, 2)
	assert.Equal(t, 26.335, gln.Atoms[0].X)

	assert.Equal(t, 2, a.Residues[2].Index)
	assert.Equal(t, chain.Met, a.Residues[2].Type)

	b := e.Chain('B')
	require.NotNil(t, b)
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, 5, b.Residues[0].Num)
	require.NoError(t, b.Validate())
}

func TestReadRepeatedN(t *testing.T) {
	in := "" +
		"ATOM      1  N   ALA A   1       0.000   0.000   0.000\n" +
		"ATOM      2  CA  ALA A   1       1.458   0.000   0.000\n" +
		"ATOM      3  N   ALA A   1       3.000   0.000   0.000\n" +
		"ATOM      4  CA  ALA A   1       4.458   0.000   0.000\n"
	e, err := Read(strings.NewReader(in), "dup")
	require.NoError(t, err)
	require.Len(t, e.Chains, 1)
	assert.Equal(t, 2, e.Chains[0].Len())
}

func TestReadErrors(t *testing.T) {
	for _, in := range []string{
		"ATOM      1  CA  ALA A   1       0.000   0.000\n",
		"ATOM      1  CA  ALA A   x       0.000   0.000   0.000\n",
		"ATOM      1  CA  ALA A   1       0.000   abcde   0.000\n",
	} {
		_, err := Read(strings.NewReader(in), "bad.pdb")
		assert.Error(t, err, in)
		assert.Contains(t, err.Error(), "bad.pdb:1")
	}
}

func TestIsHydrogen(t *testing.T) {
	assert.True(t, isHydrogen("H", ""))
	assert.True(t, isHydrogen("1HB", ""))
	assert.True(t, isHydrogen("HG1", "H"))
	assert.False(t, isHydrogen("HG", "HG"))
	assert.False(t, isHydrogen("CA", ""))
	assert.False(t, isHydrogen("NH1", ""))
}

func TestWriteRoundTrip(t *testing.T) {
	e, err := Read(strings.NewReader(sample), "sample.pdb")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, e.Chains...))
	out := buf.String()
	assert.True(t, strings.HasSuffix(out, "END\n"))
	assert.Equal(t, 2, strings.Count(out, "\nTER "))

	lines := strings.Split(out, "\n")
	assert.Equal(t,
		"ATOM      1  N   MET A   1      27.340  24.430   2.614  1.00  0.00           N",
		lines[0])

	back, err := Read(&buf, "again")
	require.NoError(t, err)
	require.Len(t, back.Chains, 2)
	for i, c := range e.Chains {
		got := back.Chains[i]
		require.Equal(t, c.Len(), got.Len())
		for j := range c.Residues {
			assert.Equal(t, c.Residues[j].Num, got.Residues[j].Num)
			assert.Equal(t, c.Residues[j].Type, got.Residues[j].Type)
			assert.Equal(t, c.Residues[j].Atoms, got.Residues[j].Atoms)
		}
	}
}

func TestWriteSkipsCentroids(t *testing.T) {
	c := chain.New('A', []chain.Residue{{
		Num:  1,
		Type: chain.Ala,
		Atoms: []chain.Atom{
			{Name: "CA", Flags: chain.Backbone},
			{Name: "CM", Flags: chain.Centroid},
		},
	}})
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, c))
	assert.NotContains(t, buf.String(), " CM ")
	assert.Contains(t, buf.String(), " CA ")
}

func TestWriteModel(t *testing.T) {
	c := chain.FromTrace('A', []chain.AminoAcid{chain.Gly, chain.Gly},
		[]structure.Coords{{}, {X: 3.8}})
	var buf bytes.Buffer
	require.NoError(t, WriteModel(&buf, 1, c))
	require.NoError(t, WriteModel(&buf, 2, c))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "MODEL        1\n"))
	assert.Contains(t, out, "MODEL        2\n")
	assert.Equal(t, 2, strings.Count(out, "ENDMDL\n"))
}

func TestReadFileGzip(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "x.pdb")
	require.NoError(t, os.WriteFile(plain, []byte(sample), 0o644))

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(sample))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	zipped := filepath.Join(dir, "x.pdb.gz")
	require.NoError(t, os.WriteFile(zipped, buf.Bytes(), 0o644))

	a, err := ReadFile(plain)
	require.NoError(t, err)
	b, err := ReadFile(zipped)
	require.NoError(t, err)
	assert.Equal(t, a.Chains, b.Chains)

	_, err = ReadFile(filepath.Join(dir, "missing.pdb"))
	assert.Error(t, err)
}
