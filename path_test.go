package zipfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain path", "etc/nginx.conf", "etc/nginx.conf"},
		{"leading slash", "/etc/nginx.conf", "etc/nginx.conf"},
		{"double leading slash", "//etc/nginx.conf", "etc/nginx.conf"},
		{"consecutive slashes", "etc//nginx.conf", "etc/nginx.conf"},
		{"directory marker kept", "assets/", "assets/"},
		{"directory marker collapsed", "assets//", "assets/"},
		{"empty", "", ""},
		{"only slashes", "///", ""},
		{"dot elements preserved", "a/./b/../c", "a/./b/../c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NormalizePath(tt.in))
		})
	}
}
