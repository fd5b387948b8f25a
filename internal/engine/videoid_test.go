package engine

import "testing"

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		want   VideoID
		wantOK bool
	}{
		{"short link", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"watch", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"watch with params", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ", true},
		{"v param not first", "https://www.youtube.com/watch?feature=share&v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"embed", "https://www.youtube.com/embed/dQw4w9WgXcQ?autoplay=1", "dQw4w9WgXcQ", true},
		{"nocookie embed", "https://www.youtube-nocookie.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"v path", "https://www.youtube.com/v/dQw4w9WgXcQ?version=3", "dQw4w9WgXcQ", true},
		{"e path", "https://www.youtube.com/e/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"legacy user fragment", "https://www.youtube.com/user/rick#p/u/1/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"u path", "https://www.youtube.com/u/rick/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"mobile", "https://m.youtube.com/watch?v=_-abcDEF123", "_-abcDEF123", true},
		{"no scheme", "youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"short id", "https://youtu.be/dQw4w9", "", false},
		{"long id", "https://www.youtube.com/watch?v=dQw4w9WgXcQQ", "", false},
		{"bad chars", "https://youtu.be/dQw4w9W$XcQ", "", false},
		{"wrong host", "https://example.com/watch?v=dQw4w9WgXcQ", "", false},
		{"no marker", "https://example.com/", "", false},
		{"channel page", "https://www.youtube.com/@somechannel", "", false},
		{"empty", "", "", false},
		{"garbage", "not a url at all", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractVideoID(tt.url)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ExtractVideoID(%q) = (%q, %v), want (%q, %v)", tt.url, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseVideoID(t *testing.T) {
	tests := []struct {
		in     string
		want   VideoID
		wantOK bool
	}{
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{" dQw4w9WgXcQ ", "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"short", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseVideoID(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseVideoID(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
