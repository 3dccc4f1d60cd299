package cabcmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sassoftware/cabtool/cmdline/shared"
	"github.com/sassoftware/cabtool/lib/cabfile"
)

func TestSetMemberName(t *testing.T) {
	assert.Equal(t, "out.cab", setMemberName("out.cab", 0))
	assert.Equal(t, "out2.cab", setMemberName("out.cab", 1))
	assert.Equal(t, filepath.Join("dir", "disk10.cab"), setMemberName(filepath.Join("dir", "disk.cab"), 9))
	assert.Equal(t, "noext3", setMemberName("noext", 2))
}

func TestFormatAttributes(t *testing.T) {
	assert.Equal(t, "------", formatAttributes(0))
	assert.Equal(t, "r--a--", formatAttributes(cabfile.AttrReadOnly|cabfile.AttrArchive))
	assert.Equal(t, "-hs-xu", formatAttributes(cabfile.AttrHidden|cabfile.AttrSystem|cabfile.AttrExec|cabfile.AttrNameUTF))
}

func TestCompressionFlag(t *testing.T) {
	var f compressionFlag
	assert.Equal(t, "none", f.String())
	require.NoError(t, f.Set("LZX"))
	assert.Equal(t, cabfile.CompressLZX, f.value)
	assert.Error(t, f.Set("rar"))
	assert.Equal(t, cabfile.CompressLZX, f.value)
}

func TestOpenCabinetRejectsOtherTypes(t *testing.T) {
	dir := t.TempDir()
	zip := filepath.Join(dir, "a.zip")
	require.NoError(t, os.WriteFile(zip, []byte("PK\x03\x04\x14\x00\x00\x00"), 0644))
	_, err := openCabinet(zip)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ZIP archive")

	txt := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(txt, []byte("plain text"), 0644))
	_, err = openCabinet(txt)
	assert.ErrorIs(t, err, cabfile.ErrInvalidSignature)
}

func testCabinet(t *testing.T) []byte {
	a := cabfile.NewArchive()
	require.NoError(t, a.AddBytes("hello.txt", []byte("hello")))
	require.NoError(t, a.AddBytes("dir/world.txt", []byte("world"), cabfile.WithAttributes(cabfile.AttrReadOnly)))
	g := cabfile.NewGenerator(a)
	g.Compression = cabfile.CompressMSZIP
	blob, err := g.Build(context.Background())
	require.NoError(t, err)
	return blob
}

func TestListing(t *testing.T) {
	cab, err := cabfile.ReadCabinet(bytes.NewReader(testCabinet(t)))
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, writeListing(&buf, cab))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "SIZE"))
	assert.Contains(t, lines[2], "r-----")
	assert.Contains(t, lines[2], "0/mszip")
	assert.True(t, strings.HasSuffix(lines[2], "dir/world.txt"))
}

func TestListDigests(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	var buf bytes.Buffer
	require.NoError(t, listDigests(cmd, bytes.NewReader(testCabinet(t)), digest.SHA256, &buf))
	out := buf.String()
	assert.Contains(t, out, digest.FromString("hello").String())
	assert.Contains(t, out, digest.FromString("world").String())
	assert.Contains(t, out, "dir/world.txt")
}

func TestVerifyOne(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.cab")
	blob := testCabinet(t)
	require.NoError(t, os.WriteFile(good, blob, 0644))
	res := verifyOne(context.Background(), good)
	require.NoError(t, res.err)
	assert.Equal(t, 2, res.files)
	assert.EqualValues(t, 10, res.bytes)

	bad := filepath.Join(dir, "bad.cab")
	blob[len(blob)-1] ^= 0xff
	require.NoError(t, os.WriteFile(bad, blob, 0644))
	res = verifyOne(context.Background(), bad)
	assert.ErrorIs(t, res.err, cabfile.ErrChecksumMismatch)
}

func TestCommands(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("USERPROFILE", "")
	src := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), bytes.Repeat([]byte("a"), 30000), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "b.txt"), bytes.Repeat([]byte("b"), 30000), 0644))
	single := filepath.Join(dir, "single.cab")
	out := filepath.Join(dir, "out")

	run := func(args ...string) {
		t.Helper()
		shared.RootCmd.SetArgs(args)
		require.NoError(t, shared.RootCmd.ExecuteContext(context.Background()), args)
	}
	run("create", "-o", single, "-z", "mszip", "--set-id", "77", src)
	cab, err := openAndRead(single)
	require.NoError(t, err)
	assert.EqualValues(t, 77, cab.Header.SetID)
	assert.Equal(t, cabfile.CompressMSZIP, cab.Folders[0].Compression)

	run("extract", "-d", out, single)
	d, err := os.ReadFile(filepath.Join(out, "sub", "b.txt"))
	require.NoError(t, err)
	assert.Len(t, d, 30000)

	run("verify", single)

	set := filepath.Join(dir, "set.cab")
	run("create", "-o", set, "-z", "none", "--max-size", "40000", src)
	for i, name := range []string{"set.cab", "set2.cab"} {
		cab, err := openAndRead(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.EqualValues(t, i, cab.Header.CabNumber)
		assert.EqualValues(t, 77, cab.Header.SetID)
	}
	_, err = os.Stat(filepath.Join(dir, "set3.cab"))
	assert.True(t, os.IsNotExist(err))
}

func openAndRead(path string) (*cabfile.Cabinet, error) {
	in, err := openCabinet(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return cabfile.ReadCabinet(in)
}
