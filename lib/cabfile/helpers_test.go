package cabfile_test

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sassoftware/cabtool/lib/cabfile"
)

// DOS text files with CRLF line endings and a trailing ^Z, 78 and 74 bytes
var (
	helloC = []byte("#include <stdio.h>\r\n\r\nvoid main(void)\r\n{\r\n" +
		"    printf(\"Hello, world!\\n\");\r\n}\r\n\x1a")
	welcomeC = []byte("#include <stdio.h>\r\n\r\nvoid main(void)\r\n{\r\n" +
		"    printf(\"Welcome!!\\n\");\r\n}\r\n\x1a")
)

// testData returns n bytes that are partly compressible
func testData(seed int64, n int) []byte {
	r := rand.New(rand.NewSource(seed))
	d := make([]byte, n)
	for i := 0; i < n; {
		if r.Intn(2) == 0 {
			// a run of text
			run := []byte("the quick brown fox jumps over the lazy dog. ")
			i += copy(d[i:], run[:1+r.Intn(len(run)-1)])
		} else {
			end := i + r.Intn(64)
			for ; i < end && i < n; i++ {
				d[i] = byte(r.Intn(256))
			}
		}
	}
	return d
}

// blockInfo describes one CFDATA record found by walkBlocks
type blockInfo struct {
	Offset       int
	Checksum     uint32
	Compressed   int
	Uncompressed int
}

// walkBlocks follows the data blocks of every folder and checks that they sit
// exactly where the folder table says and end exactly at the cabinet's size
func walkBlocks(t *testing.T, blob []byte) (*cabfile.Cabinet, [][]blockInfo) {
	t.Helper()
	cab, err := cabfile.ReadCabinet(bytes.NewReader(blob))
	require.NoError(t, err)
	require.EqualValues(t, len(blob), cab.Header.TotalSize)
	var all [][]blockInfo
	var pos int
	for i, fh := range cab.Folders {
		if i == 0 {
			pos = int(fh.Offset)
		}
		require.EqualValues(t, pos, fh.Offset, "folder %d start", i)
		var blocks []blockInfo
		for j := 0; j < int(fh.NumData); j++ {
			require.LessOrEqual(t, pos+8, len(blob))
			b := blockInfo{
				Offset:       pos,
				Checksum:     binary.LittleEndian.Uint32(blob[pos:]),
				Compressed:   int(binary.LittleEndian.Uint16(blob[pos+4:])),
				Uncompressed: int(binary.LittleEndian.Uint16(blob[pos+6:])),
			}
			blocks = append(blocks, b)
			pos += 8 + b.Compressed
		}
		all = append(all, blocks)
	}
	if len(cab.Folders) > 0 {
		require.Equal(t, len(blob), pos, "end of data")
	}
	return cab, all
}

// memSink collects streamed files in memory
type memSink struct {
	committed map[string][]byte
	order     []string
	aborted   []string
}

func newMemSink() *memSink {
	return &memSink{committed: make(map[string][]byte)}
}

func (s *memSink) Sink(f *cabfile.File) (cabfile.FileWriter, error) {
	return &memFile{name: f.Name, sink: s}, nil
}

type memFile struct {
	bytes.Buffer
	name string
	sink *memSink
	done bool
}

func (m *memFile) Commit() error {
	m.sink.committed[m.name] = m.Bytes()
	m.sink.order = append(m.sink.order, m.name)
	m.done = true
	return nil
}

func (m *memFile) Close() error {
	if !m.done {
		m.sink.aborted = append(m.sink.aborted, m.name)
		m.done = true
	}
	return nil
}

