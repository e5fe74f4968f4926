package studio

import (
	"errors"
	"testing"
)

func TestParseFilename(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "extended utf-8", header: "attachment; filename*=utf-8''model.tflite", want: "model.tflite"},
		{name: "extended uppercase charset", header: "attachment; filename*=UTF-8''my%20model.zip", want: "my model.zip"},
		{name: "extended with language", header: "attachment; filename*=utf-8'en'ei%2Dmodel.zip", want: "ei-model.zip"},
		{name: "extended latin1", header: "attachment; filename*=iso-8859-1''caf%E9.zip", want: "café.zip"},
		{name: "quoted plain", header: `attachment; filename="firmware.bin"`, want: "firmware.bin"},
		{name: "token plain", header: "attachment; filename=firmware.bin", want: "firmware.bin"},
		{name: "quoted with semicolon", header: `attachment; filename="a;b.zip"; size=10`, want: "a;b.zip"},
		{name: "quoted with escape", header: `attachment; filename="say \"hi\".zip"`, want: `say "hi".zip`},
		{name: "extended wins", header: `attachment; filename="fallback.zip"; filename*=utf-8''preferred.zip`, want: "preferred.zip"},
		{name: "parameter case", header: "Attachment; FILENAME=upper.zip", want: "upper.zip"},
		{name: "path stripped", header: `attachment; filename="../../etc/passwd"`, want: "passwd"},
		{name: "windows path stripped", header: `attachment; filename="C:\\temp\\model.zip"`, want: "model.zip"},
		{name: "nfc normalized", header: "attachment; filename*=utf-8''cafe%CC%81.zip", want: "caf\u00e9.zip"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFilename(tt.header)
			if err != nil {
				t.Fatalf("ParseFilename(%q) error: %v", tt.header, err)
			}
			if got != tt.want {
				t.Fatalf("ParseFilename(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestParseFilenameErrors(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   error
	}{
		{name: "missing header", header: "", want: ErrNoDisposition},
		{name: "blank header", header: "   ", want: ErrNoDisposition},
		{name: "no filename", header: "attachment", want: ErrNoFilename},
		{name: "empty filename", header: `attachment; filename=""`, want: ErrInvalidFilename},
		{name: "dot dot", header: `attachment; filename=".."`, want: ErrInvalidFilename},
		{name: "invalid utf-8", header: "attachment; filename*=utf-8''%FF%FEmodel.bin", want: ErrInvalidFilename},
		{name: "unsupported charset", header: "attachment; filename*=koi8-r''x.zip", want: ErrInvalidFilename},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFilename(tt.header)
			if !errors.Is(err, tt.want) {
				t.Fatalf("ParseFilename(%q) error = %v, want %v", tt.header, err, tt.want)
			}
		})
	}
}
