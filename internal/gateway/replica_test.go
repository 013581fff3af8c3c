package gateway

import (
	"reflect"
	"testing"
)

func TestPortArgvRewritesListenPortFlag(t *testing.T) {
	argv := []string{"streamlit", "run", "app.py", "--server.port", "5000"}
	got := portArgv(argv, 5002)
	want := []string{"streamlit", "run", "app.py", "--server.port", "5002"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("portArgv = %v, want %v", got, want)
	}
	if argv[4] != "5000" {
		t.Fatalf("portArgv mutated the source argv: %v", argv)
	}
}

func TestPortArgvRewritesEqualsForms(t *testing.T) {
	got := portArgv([]string{"app", "--server.port=5000", "-port=5000"}, 5001)
	want := []string{"app", "--server.port=5001", "-port=5001"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("portArgv = %v, want %v", got, want)
	}
}

func TestPortArgvLeavesFlaglessArgvAlone(t *testing.T) {
	argv := []string{"python", "serve.py", "5000"}
	got := portArgv(argv, 5001)
	if !reflect.DeepEqual(got, argv) {
		t.Fatalf("portArgv = %v, want %v unchanged", got, argv)
	}
}
