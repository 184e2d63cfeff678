package textkit

import (
	"reflect"
	"testing"
)

func TestWords(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"spaces", "hello world", []string{"hello", "world"}},
		{"mixed delimiters", "hello_world-foo bar", []string{"hello", "world", "foo", "bar"}},
		{"camel boundary", "helloWorld", []string{"hello", "World"}},
		{"acronym run", "getHTTPResponse", []string{"get", "HTTP", "Response"}},
		{"trailing acronym", "userID", []string{"user", "ID"}},
		{"digits bind left", "userID2", []string{"user", "ID2"}},
		{"digit then upper", "v2Counter", []string{"v2", "Counter"}},
		{"empty", "", nil},
		{"delimiters only", "_-_ ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Words(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Words(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCaseConversions(t *testing.T) {
	tests := []struct {
		name string
		fn   func(string) string
		in   string
		want string
	}{
		{"Upper", Upper, "hello", "HELLO"},
		{"Lower", Lower, "HeLLo", "hello"},
		{"Title plain", Title, "hello world", "Hello World"},
		{"Title shouty", Title, "HELLO WORLD", "Hello World"},
		{"Camel from spaces", Camel, "hello world", "helloWorld"},
		{"Camel from snake", Camel, "hello_world", "helloWorld"},
		{"Camel from acronym", Camel, "HTTP server", "httpServer"},
		{"Camel empty", Camel, "", ""},
		{"Pascal from spaces", Pascal, "hello world", "HelloWorld"},
		{"Pascal from kebab", Pascal, "hello-world", "HelloWorld"},
		{"Snake from camel", Snake, "getHTTPResponse", "get_http_response"},
		{"Snake from spaces", Snake, "Hello World", "hello_world"},
		{"Kebab from camel", Kebab, "helloWorld", "hello-world"},
		{"Kebab from title", Kebab, "Hello World", "hello-world"},
		{"Constant from camel", Constant, "helloWorld", "HELLO_WORLD"},
		{"Constant from kebab", Constant, "hello-world", "HELLO_WORLD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.in); got != tt.want {
				t.Errorf("%s(%q) = %q, want %q", tt.name, tt.in, got, tt.want)
			}
		})
	}
}
