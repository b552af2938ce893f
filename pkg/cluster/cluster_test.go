package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	calc := NewCalculator("default", map[string]string{
		"east.example.com": "east",
		"WEST.example.com": "west",
	})

	tests := []struct {
		host string
		want string
	}{
		{"east.example.com", "east"},
		{"east.example.com:9091", "east"},
		{"EAST.EXAMPLE.COM", "east"},
		{"west.example.com", "west"},
		{"unknown.example.com", "default"},
		{"", "default"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, calc.Calculate(tt.host), "host %q", tt.host)
	}
}

func TestDefault(t *testing.T) {
	calc := NewCalculator("main", nil)
	assert.Equal(t, "main", calc.Default())
	assert.Equal(t, "main", calc.Calculate("anything"))
}
