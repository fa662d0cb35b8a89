package validation

import (
	"net"
	"strings"
	"testing"
)

func TestNewArticleURLValidator(t *testing.T) {
	v := NewArticleURLValidator()
	if v.AllowLocalhost {
		t.Error("Expected AllowLocalhost to be false for article URLs")
	}
	if v.AllowPrivateIPs {
		t.Error("Expected AllowPrivateIPs to be false for article URLs")
	}
	if v.MaxLength != 2048 {
		t.Errorf("Expected MaxLength to be 2048, got %d", v.MaxLength)
	}
}

func TestValidateAndNormalize(t *testing.T) {
	v := NewArticleURLValidator()

	tests := []struct {
		name        string
		input       string
		expected    string
		shouldError bool
		errorMsg    string
	}{
		{
			name:        "empty URL",
			input:       "",
			shouldError: true,
			errorMsg:    "URL cannot be empty",
		},
		{
			name:        "whitespace-only URL",
			input:       "   ",
			shouldError: true,
			errorMsg:    "URL cannot be empty",
		},
		{
			name:     "HTTPS article preserved",
			input:    "https://news.example.org/2025/03/good-news",
			expected: "https://news.example.org/2025/03/good-news",
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    "  http://news.example.org/a  ",
			expected: "http://news.example.org/a",
		},
		{
			name:     "host lowercased and fragment dropped",
			input:    "https://News.Example.org/a#comments",
			expected: "https://news.example.org/a",
		},
		{
			name:        "missing scheme",
			input:       "news.example.org/a",
			shouldError: true,
			errorMsg:    "http or https",
		},
		{
			name:        "ftp scheme",
			input:       "ftp://news.example.org/a",
			shouldError: true,
			errorMsg:    "http or https",
		},
		{
			name:        "URL too long",
			input:       "https://news.example.org/" + strings.Repeat("a", 3000),
			shouldError: true,
			errorMsg:    "URL too long",
		},
		{
			name:        "invalid characters",
			input:       "https://news.example.org/<script>alert(1)</script>",
			shouldError: true,
			errorMsg:    "invalid characters",
		},
		{
			name:        "localhost blocked",
			input:       "https://localhost/a",
			shouldError: true,
			errorMsg:    "localhost URLs are not permitted",
		},
		{
			name:        "loopback blocked",
			input:       "https://127.0.0.1/a",
			shouldError: true,
			errorMsg:    "localhost URLs are not permitted",
		},
		{
			name:        "private IP blocked",
			input:       "https://192.168.1.1/a",
			shouldError: true,
			errorMsg:    "private IP addresses are not permitted",
		},
		{
			name:        "no hostname",
			input:       "https:///a",
			shouldError: true,
			errorMsg:    "URL must have a valid hostname",
		},
		{
			name:        "javascript in query params",
			input:       "https://news.example.org/a?redirect=javascript:alert(1)",
			shouldError: true,
			errorMsg:    "suspicious query parameters",
		},
		{
			name:        "unroutable host",
			input:       "http://0.0.0.0/a",
			shouldError: true,
			errorMsg:    "unroutable host",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := v.ValidateAndNormalize(tt.input)
			if tt.shouldError {
				if err == nil {
					t.Errorf("Expected error for input %q", tt.input)
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error containing %q, got %q", tt.errorMsg, err.Error())
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error for input %q: %v", tt.input, err)
			}
			if result != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestServiceURLValidatorAllowsLocal(t *testing.T) {
	v := NewServiceURLValidator()

	for _, input := range []string{
		"http://127.0.0.1:5000",
		"http://localhost:5000/",
		"https://10.0.0.12:8443",
	} {
		if _, err := v.ValidateAndNormalize(input); err != nil {
			t.Errorf("ValidateAndNormalize(%q) error = %v", input, err)
		}
	}

	if _, err := v.ValidateAndNormalize("ftp://10.0.0.12"); err == nil {
		t.Error("service URLs still require http or https")
	}
}

func TestIsLocalhost(t *testing.T) {
	tests := []struct {
		host     string
		expected bool
	}{
		{"localhost", true},
		{"LOCALHOST", true},
		{"api.localhost", true},
		{"127.0.0.1", true},
		{"127.0.1.1", true},
		{"::1", true},
		{"localhost.com", false},
		{"news.example.org", false},
	}

	for _, tt := range tests {
		if got := isLocalhost(tt.host); got != tt.expected {
			t.Errorf("isLocalhost(%q) = %v, want %v", tt.host, got, tt.expected)
		}
	}
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip       string
		expected bool
	}{
		{"10.1.2.3", true},
		{"172.16.0.1", true},
		{"172.32.0.1", false},
		{"192.168.0.1", true},
		{"169.254.1.1", true},
		{"fd00::1", true},
		{"fe80::1", true},
		{"8.8.8.8", false},
		{"2001:4860:4860::8888", false},
	}

	for _, tt := range tests {
		if got := isPrivateIP(net.ParseIP(tt.ip)); got != tt.expected {
			t.Errorf("isPrivateIP(%q) = %v, want %v", tt.ip, got, tt.expected)
		}
	}
}
