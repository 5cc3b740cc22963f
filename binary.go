package main

import (
	"bytes"
)

// sniffLen is how much of a text-kind file is inspected before decoding.
const sniffLen = 8 * 1024

var documentExtensions = map[string]bool{
	"pdf":  true,
	"docx": true,
}

var spreadsheetExtensions = map[string]bool{
	"xlsx": true,
	"xlsm": true,
	"xltx": true,
	"xltm": true,
}

var imageExtensions = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true, "bmp": true,
	"webp": true, "ico": true, "tiff": true, "tif": true, "heic": true,
	"avif": true, "psd": true,
}

// binaryExtensions are formats nothing here can extract text from.
var binaryExtensions = map[string]bool{
	// archives
	"zip": true, "tar": true, "gz": true, "tgz": true, "bz2": true, "xz": true,
	"7z": true, "rar": true, "zst": true, "jar": true, "war": true,
	// executables and objects
	"exe": true, "dll": true, "so": true, "dylib": true, "a": true, "o": true,
	"obj": true, "lib": true, "bin": true, "class": true, "pyc": true,
	"pyo": true, "wasm": true, "elf": true,
	// media
	"mp3": true, "mp4": true, "wav": true, "flac": true, "ogg": true,
	"avi": true, "mov": true, "mkv": true, "webm": true,
	// fonts
	"ttf": true, "otf": true, "woff": true, "woff2": true, "eot": true,
	// data blobs and legacy office formats
	"db": true, "sqlite": true, "sqlite3": true, "parquet": true,
	"doc": true, "xls": true, "ppt": true, "pptx": true, "odt": true,
	"ods": true, "npy": true, "npz": true, "pkl": true,
	"ckpt": true, "pt": true, "pth": true, "safetensors": true, "h5": true, "onnx": true,
}

// detectKind classifies an entry from its extension alone. Anything unknown
// is treated as text and sniffed when read.
func detectKind(ext string) Kind {
	switch {
	case documentExtensions[ext]:
		return KindDocument
	case spreadsheetExtensions[ext]:
		return KindSpreadsheet
	case imageExtensions[ext]:
		return KindImage
	case binaryExtensions[ext]:
		return KindBinary
	}
	return KindText
}

var (
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// looksBinary inspects the start of a file for NUL bytes or a high ratio of
// control characters. UTF-16 text carries NULs, so a BOM exempts it from the
// NUL check.
func looksBinary(data []byte) bool {
	if len(data) > sniffLen {
		data = data[:sniffLen]
	}
	if len(data) == 0 {
		return false
	}
	if bytes.HasPrefix(data, bomUTF16LE) || bytes.HasPrefix(data, bomUTF16BE) {
		return false
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return true
	}

	control := 0
	for _, b := range data {
		if isControlByte(b) {
			control++
		}
	}
	// More than 30% control bytes is not text in any encoding we decode.
	return float64(control)/float64(len(data)) > 0.3
}

func isControlByte(b byte) bool {
	switch b {
	case '\n', '\r', '\t', '\f', 0x1b:
		return false
	}
	return b < 0x20 || b == 0x7f
}
