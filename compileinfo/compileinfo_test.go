package compileinfo

import (
	"bytes"
	"strings"
	"testing"
)

func TestBuild(t *testing.T) {
	for _, v := range []struct {
		Info CompileInfo
		Want string
	}{
		{CompileInfo{}, "unknown"},
		{CompileInfo{Commit: "abc123"}, "abc123"},
		{CompileInfo{Commit: "abc123", Modified: true}, "abc123+modified"},
	} {
		if got := v.Info.Build(); got != v.Want {
			t.Fatalf("%+v: got %q, expected %q", v.Info, got, v.Want)
		}
	}
}

func TestFprint(t *testing.T) {
	var buf bytes.Buffer
	Fprint(&buf)

	if !strings.HasPrefix(buf.String(), "This ") || !strings.HasSuffix(buf.String(), "\n") {
		t.Fatalf("Unexpected description %q", buf.String())
	}
}
