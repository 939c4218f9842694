package ffmpeg

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/clipsmith/clipsmith/internal/types"
)

func TestConcatenate_NoValidClips(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "final.mp4")
	a := New(Config{})

	res, err := a.Concatenate(context.Background(), []string{
		filepath.Join(dir, "missing-1.mp4"),
		filepath.Join(dir, "missing-2.mp4"),
	}, out)
	if !types.IsKind(err, types.KindNoValidClips) {
		t.Fatalf("expected no-valid-clips, got: %v", err)
	}
	if len(res.Warnings) != 2 {
		t.Fatalf("every dropped clip must leave a warning, got: %v", res.Warnings)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("no output file may be written, stat: %v", err)
	}
}

func TestConcatenate_EmptyInput(t *testing.T) {
	dir := t.TempDir()
	a := New(Config{})
	if _, err := a.Concatenate(context.Background(), nil, filepath.Join(dir, "final.mp4")); !types.IsKind(err, types.KindNoValidClips) {
		t.Fatalf("expected no-valid-clips, got: %v", err)
	}
}

func TestParseProbe(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    types.MediaProfile
		wantErr types.Kind
	}{
		{
			name: "video with audio",
			raw: `{"streams":[
				{"codec_type":"video","width":1920,"height":1080,"duration":"12.500","r_frame_rate":"30/1"},
				{"codec_type":"audio"}
			],"format":{"duration":"12.512"}}`,
			want: types.MediaProfile{Duration: 12.5, Width: 1920, Height: 1080, FrameRate: 30, HasAudio: true},
		},
		{
			name: "video only, duration from format",
			raw: `{"streams":[
				{"codec_type":"video","width":720,"height":1280,"r_frame_rate":"30000/1001"}
			],"format":{"duration":"8.000"}}`,
			want: types.MediaProfile{Duration: 8, Width: 720, Height: 1280, FrameRate: 30000.0 / 1001.0, HasAudio: false},
		},
		{
			name: "duration from frame count",
			raw: `{"streams":[
				{"codec_type":"video","width":640,"height":480,"r_frame_rate":"25/1","nb_frames":"250"}
			],"format":{}}`,
			want: types.MediaProfile{Duration: 10, Width: 640, Height: 480, FrameRate: 25, HasAudio: false},
		},
		{
			name:    "audio only",
			raw:     `{"streams":[{"codec_type":"audio"}],"format":{"duration":"4.0"}}`,
			wantErr: types.KindNoVideoStream,
		},
		{
			name:    "no duration anywhere",
			raw:     `{"streams":[{"codec_type":"video","width":10,"height":10,"r_frame_rate":"0/0"}],"format":{}}`,
			wantErr: types.KindCorruptFile,
		},
		{
			name:    "not json",
			raw:     "moov atom not found",
			wantErr: types.KindCorruptFile,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseProbe("test.mp4", tt.raw)
			if tt.wantErr != "" {
				if !types.IsKind(err, tt.wantErr) {
					t.Fatalf("want error kind %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"30/1", 30},
		{"30000/1001", 30000.0 / 1001.0},
		{"0/0", 0},
		{"25", 25},
		{"garbage", 0},
	}
	for _, tt := range tests {
		if got := parseFrameRate(tt.in); got != tt.want {
			t.Errorf("parseFrameRate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseCropLine(t *testing.T) {
	stderr := `[Parsed_cropdetect_0 @ 0x55] x1:0 x2:719 y1:139 y2:1139 w:720 h:992 x:0 y:144 pts:9 t:0.3 crop=720:992:0:144
[Parsed_cropdetect_0 @ 0x55] x1:0 x2:719 y1:140 y2:1139 w:720 h:1000 x:0 y:140 pts:18 t:0.6 crop=720:1000:0:140`

	got := parseCropLine(stderr)
	if got == nil {
		t.Fatal("expected a crop")
	}
	want := types.CropRect{W: 720, H: 1000, X: 0, Y: 140}
	if *got != want {
		t.Errorf("got %+v, want %+v (last line should win)", *got, want)
	}

	if c := parseCropLine("no crops here"); c != nil {
		t.Errorf("expected nil, got %+v", *c)
	}
	if c := parseCropLine("crop=0:0:0:0"); c != nil {
		t.Errorf("zero-area crop should be rejected, got %+v", *c)
	}
}

func TestNegligibleCrop(t *testing.T) {
	tests := []struct {
		name string
		crop types.CropRect
		w, h int
		want bool
	}{
		{"full frame", types.CropRect{W: 720, H: 1280, X: 0, Y: 0}, 720, 1280, true},
		{"one pixel border", types.CropRect{W: 718, H: 1278, X: 1, Y: 1}, 720, 1280, true},
		{"letterboxed 16:9 in 9:16", types.CropRect{W: 720, H: 406, X: 0, Y: 437}, 720, 1280, false},
		{"thin but real bars", types.CropRect{W: 720, H: 1240, X: 0, Y: 20}, 720, 1280, false},
		{"degenerate source", types.CropRect{W: 10, H: 10, X: 0, Y: 0}, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := negligibleCrop(tt.crop, tt.w, tt.h); got != tt.want {
				t.Errorf("negligibleCrop(%+v, %d, %d) = %v, want %v", tt.crop, tt.w, tt.h, got, tt.want)
			}
		})
	}
}

func TestConcatList(t *testing.T) {
	out := concatList([]string{"/tmp/a.mp4", "/tmp/it's.mp4"})
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("want 2 entries, got %d: %q", len(lines), out)
	}
	if lines[0] != "file '/tmp/a.mp4'" {
		t.Errorf("unexpected first entry: %q", lines[0])
	}
	if !strings.Contains(lines[1], `it'\''s`) {
		t.Errorf("single quote not escaped: %q", lines[1])
	}
}

func TestTruncateKeepsTail(t *testing.T) {
	s := strings.Repeat("x", 100) + "tail"
	got := truncate(s, 10)
	if got != "xxxxxxtail" {
		t.Errorf("truncate should keep the end of the output, got %q", got)
	}
	if truncate("short", 10) != "short" {
		t.Error("short strings should pass through")
	}
}

func TestNewFillsDefaults(t *testing.T) {
	a := New(Config{FFmpegPath: "/usr/local/bin/ffmpeg"})
	if a.cfg.FFmpegPath != "/usr/local/bin/ffmpeg" {
		t.Errorf("explicit path lost: %q", a.cfg.FFmpegPath)
	}
	def := DefaultConfig()
	if a.cfg.VideoCodec != def.VideoCodec || a.cfg.AudioRate != def.AudioRate {
		t.Errorf("defaults not filled: %+v", a.cfg)
	}
	if a.cfg.DefaultResolution != def.DefaultResolution {
		t.Errorf("default resolution not filled: %+v", a.cfg.DefaultResolution)
	}
}
