package cabfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRecord(t *testing.T) {
	f := &File{
		FileHeader: FileHeader{
			Size:         1234,
			FolderOffset: 99,
			Folder:       2,
			Date:         0x5821,
			Time:         0x6000,
			Attributes:   AttrArchive | AttrReadOnly,
		},
		Name: "dir/name.txt",
	}
	blob := EncodeFile(f)
	require.Len(t, blob, fileFixedSize+len(f.Name)+1)
	assert.Equal(t, uint32(1234), binary.LittleEndian.Uint32(blob))
	assert.Equal(t, byte(0), blob[len(blob)-1])
	// trailing bytes are left alone
	decoded, n, err := DecodeFile(append(blob, 0xff, 0xff))
	require.NoError(t, err)
	assert.Equal(t, len(blob), n)
	assert.Equal(t, f, decoded)
}

func TestFileRecordMissingNUL(t *testing.T) {
	blob := EncodeFile(&File{Name: "abc"})
	_, _, err := DecodeFile(blob[:len(blob)-1])
	assert.ErrorIs(t, err, ErrMalformedRecord)
	_, _, err = DecodeFile(blob[:10])
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestFileRecordLongName(t *testing.T) {
	blob := EncodeFile(&File{Name: string(bytes.Repeat([]byte{'x'}, 300))})
	_, _, err := DecodeFile(blob)
	assert.ErrorIs(t, err, ErrMalformedRecord)
	// the same limit applies as when adding an entry
	blob = EncodeFile(&File{Name: string(bytes.Repeat([]byte{'x'}, MaxNameLength+1))})
	_, _, err = DecodeFile(blob)
	assert.ErrorIs(t, err, ErrMalformedRecord)
	blob = EncodeFile(&File{Name: string(bytes.Repeat([]byte{'x'}, MaxNameLength))})
	f, n, err := DecodeFile(blob)
	require.NoError(t, err)
	assert.Len(t, f.Name, MaxNameLength)
	assert.Equal(t, len(blob), n)
}

func TestDecodeHeader(t *testing.T) {
	want := Header{
		Magic:       Magic,
		Reserved1:   0x11223344,
		TotalSize:   0x01020304,
		Reserved2:   0x55667788,
		OffsetFiles: 0x0a0b0c0d,
		Reserved3:   0x99aabbcc,
		Version:     Version,
		NumFolders:  3,
		NumFiles:    0x1234,
		Flags:       FlagReservePresent,
		SetID:       0xbeef,
		CabNumber:   7,
	}
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, &want))
	require.Equal(t, headerSize, buf.Len())
	assert.Equal(t, want, decodeHeader(buf.Bytes()))
}

func testHeader(mod func(h *Header)) []byte {
	h := Header{
		Magic:       Magic,
		TotalSize:   headerSize,
		OffsetFiles: headerSize,
		Version:     Version,
	}
	if mod != nil {
		mod(&h)
	}
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, &h)
	return buf.Bytes()
}

func TestReadCabinetEmpty(t *testing.T) {
	cab, err := ReadCabinet(bytes.NewReader(testHeader(nil)))
	require.NoError(t, err)
	assert.Empty(t, cab.Folders)
	assert.Empty(t, cab.Files)
}

func TestReadCabinetErrors(t *testing.T) {
	_, err := ReadCabinet(bytes.NewReader([]byte("PK\x03\x04 not a cabinet at all, just some zip bytes")))
	assert.ErrorIs(t, err, ErrInvalidSignature)
	_, err = ReadCabinet(bytes.NewReader([]byte("MS")))
	assert.ErrorIs(t, err, ErrInvalidSignature)
	_, err = ReadCabinet(bytes.NewReader(testHeader(nil)[:20]))
	assert.ErrorIs(t, err, ErrMalformedRecord)
	_, err = ReadCabinet(bytes.NewReader(testHeader(func(h *Header) { h.Version = 0x0203 })))
	assert.ErrorIs(t, err, ErrMalformedRecord)
	_, err = ReadCabinet(bytes.NewReader(testHeader(func(h *Header) { h.Flags = FlagNextCabinet })))
	assert.ErrorIs(t, err, ErrMalformedRecord)
	// declares a folder that isn't there
	_, err = ReadCabinet(bytes.NewReader(testHeader(func(h *Header) { h.NumFolders = 1 })))
	assert.ErrorIs(t, err, ErrMalformedRecord)
	// stream failures are reported as I/O errors
	boom := errors.New("boom")
	_, err = ReadCabinet(io.MultiReader(bytes.NewReader(testHeader(nil)[:10]), iotest.ErrReader(boom)))
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, boom)
}

func TestReadCabinetReserve(t *testing.T) {
	hdr := testHeader(func(h *Header) {
		h.Flags = FlagReservePresent
		h.NumFolders = 1
		h.NumFiles = 1
		h.OffsetFiles = headerSize + reserveSize + 6 + folderSize + 3
	})
	var buf bytes.Buffer
	buf.Write(hdr)
	_ = binary.Write(&buf, binary.LittleEndian, &ReserveHeader{HeaderSize: 6, FolderSize: 3, DataSize: 4})
	buf.WriteString("sigsig")
	_ = binary.Write(&buf, binary.LittleEndian, &FolderHeader{Offset: 1000, NumData: 1, Compression: CompressMSZIP})
	buf.WriteString("fff")
	buf.Write(EncodeFile(&File{FileHeader: FileHeader{Size: 5}, Name: "a.txt"}))
	cab, err := ReadCabinet(iotest.OneByteReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, []byte("sigsig"), cab.ReserveData)
	assert.Equal(t, ReserveHeader{HeaderSize: 6, FolderSize: 3, DataSize: 4}, cab.ReserveHeader)
	require.Len(t, cab.Folders, 1)
	assert.Equal(t, CompressMSZIP, cab.Folders[0].Compression)
	require.Len(t, cab.Files, 1)
	assert.Equal(t, "a.txt", cab.Files[0].Name)
}

func TestReadCabinetBadFolderIndex(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(testHeader(func(h *Header) { h.NumFiles = 1 }))
	buf.Write(EncodeFile(&File{FileHeader: FileHeader{Folder: 0}, Name: "x"}))
	_, err := ReadCabinet(&buf)
	assert.ErrorIs(t, err, ErrMalformedRecord)
}
