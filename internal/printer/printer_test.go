package printer

import (
	"bytes"
	"os"
	"testing"
)

func TestMain(m *testing.M) {
	SetNoColor(true)
	os.Exit(m.Run())
}

func TestRenderFunctions_NoColor(t *testing.T) {
	tests := []struct {
		name     string
		function func(string) string
	}{
		{"Faint", Faint},
		{"Bold", Bold},
		{"Success", Success},
		{"Error", Error},
		{"Warning", Warning},
		{"Info", Info},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.function("published a@1.0.0"); got != "published a@1.0.0" {
				t.Errorf("%s() = %q, want plain text", tt.name, got)
			}
			if got := tt.function(""); got != "" {
				t.Errorf("%s(\"\") = %q", tt.name, got)
			}
		})
	}
}

func TestPrintFunctions(t *testing.T) {
	tests := []struct {
		name     string
		function func(string)
	}{
		{"PrintFaint", PrintFaint},
		{"PrintBold", PrintBold},
		{"PrintSuccess", PrintSuccess},
		{"PrintError", PrintError},
		{"PrintWarning", PrintWarning},
		{"PrintInfo", PrintInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			SetOutput(&buf)
			t.Cleanup(func() { SetOutput(os.Stdout) })

			tt.function("2 packages to publish")
			if got := buf.String(); got != "2 packages to publish\n" {
				t.Errorf("%s() wrote %q", tt.name, got)
			}
		})
	}
}
