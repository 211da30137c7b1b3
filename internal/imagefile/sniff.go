package imagefile

import (
	"github.com/gabriel-vasile/mimetype"
)

// DetectMIME sniffs the content type of data. Used when a front end has no
// declared type, e.g. files read from disk by the CLI.
func DetectMIME(data []byte) string {
	return NormalizeMIME(mimetype.Detect(data).String())
}

// DeclaredOrDetected returns declared when set, otherwise the sniffed type.
func DeclaredOrDetected(declared string, data []byte) string {
	if m := NormalizeMIME(declared); m != "" && m != "application/octet-stream" {
		return m
	}
	return DetectMIME(data)
}
