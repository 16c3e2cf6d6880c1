package envvar_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JaimeStill/verity/pkg/envvar"
)

func TestString(t *testing.T) {
	t.Setenv("VERITY_TEST_STRING", "set")

	dst := "default"
	envvar.String("", &dst)
	if dst != "default" {
		t.Errorf("empty name: got %q, want default", dst)
	}

	envvar.String("VERITY_TEST_UNSET", &dst)
	if dst != "default" {
		t.Errorf("unset var: got %q, want default", dst)
	}

	envvar.String("VERITY_TEST_STRING", &dst)
	if dst != "set" {
		t.Errorf("set var: got %q, want set", dst)
	}
}

func TestNumeric(t *testing.T) {
	t.Setenv("VERITY_TEST_INT", "42")
	t.Setenv("VERITY_TEST_FLOAT", "0.85")
	t.Setenv("VERITY_TEST_BAD", "forty")

	n := 1
	envvar.Int("VERITY_TEST_INT", &n)
	if n != 42 {
		t.Errorf("int: got %d, want 42", n)
	}

	envvar.Int("VERITY_TEST_BAD", &n)
	if n != 42 {
		t.Errorf("unparseable int should be ignored, got %d", n)
	}

	f := 0.5
	envvar.Float("VERITY_TEST_FLOAT", &f)
	if f != 0.85 {
		t.Errorf("float: got %v, want 0.85", f)
	}

	envvar.Float("VERITY_TEST_BAD", &f)
	if f != 0.85 {
		t.Errorf("unparseable float should be ignored, got %v", f)
	}
}

func TestBool(t *testing.T) {
	t.Setenv("VERITY_TEST_BOOL", "false")

	b := true
	envvar.Bool("VERITY_TEST_BOOL", &b)
	if b {
		t.Error("bool: got true, want false")
	}

	var p *bool
	envvar.BoolPtr("VERITY_TEST_UNSET", &p)
	if p != nil {
		t.Error("unset pointer should stay nil")
	}

	envvar.BoolPtr("VERITY_TEST_BOOL", &p)
	if p == nil || *p {
		t.Errorf("bool pointer: got %v, want false", p)
	}
}

func TestList(t *testing.T) {
	t.Setenv("VERITY_TEST_LIST", " sora, veo ,, runway ")

	dst := []string{"imagen"}
	envvar.List("VERITY_TEST_LIST", &dst)

	want := []string{"sora", "veo", "runway"}
	if diff := cmp.Diff(want, dst); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}
}
