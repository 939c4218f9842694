package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/clipsmith/clipsmith/internal/domain/editplan"
	"github.com/clipsmith/clipsmith/internal/planner"
	"github.com/clipsmith/clipsmith/internal/ports"
	"github.com/clipsmith/clipsmith/internal/ports/adapters/ffmpeg"
	"github.com/clipsmith/clipsmith/internal/ports/adapters/gemini"
	"github.com/clipsmith/clipsmith/internal/ports/adapters/openai"
	"github.com/clipsmith/clipsmith/internal/types"
	"github.com/clipsmith/clipsmith/internal/usecase"
	"github.com/clipsmith/clipsmith/internal/workspace"
)

type Config struct {
	ScriptPath string
	// MediaDir is scanned for video assets in name order.
	MediaDir string
	// TimelinesPath, when set, supplies pre-generated asset timelines
	// and skips the understanding stage.
	TimelinesPath string
	// EditScriptPath, when set, supplies a pre-authored shot list and
	// skips planning entirely; ScriptPath is ignored.
	EditScriptPath string
	OutDir         string
	ProfilePath    string
	Concurrency    int

	FFmpegPath string

	OpenAIAPIKey       string
	OpenAIModel        string
	OpenAIBaseURL      string
	OpenAIAllowedHosts []string

	GeminiAPIKey string
	GeminiModel  string

	Logger *zap.Logger
}

var videoExts = map[string]struct{}{
	".mp4": {}, ".mov": {}, ".mkv": {}, ".webm": {}, ".avi": {}, ".m4v": {},
}

func (c Config) Validate() error {
	if c.MediaDir != "" {
		if st, err := os.Stat(c.MediaDir); err != nil {
			return fmt.Errorf("stat media dir: %w", err)
		} else if !st.IsDir() {
			return fmt.Errorf("media path %s is not a directory", c.MediaDir)
		}
	}

	if c.EditScriptPath != "" {
		if _, err := os.Stat(c.EditScriptPath); err != nil {
			return fmt.Errorf("stat edit script: %w", err)
		}
		if c.MediaDir == "" {
			return errors.New("an edit script needs a media dir to resolve against")
		}
		return nil
	}

	if c.ScriptPath == "" {
		return errors.New("script path is empty")
	}
	if _, err := os.Stat(c.ScriptPath); err != nil {
		return fmt.Errorf("stat script: %w", err)
	}
	if c.MediaDir == "" && c.TimelinesPath == "" {
		return errors.New("either a media dir or a timelines file is required")
	}
	if c.OpenAIAPIKey == "" {
		return errors.New("OPENAI_API_KEY is required")
	}
	if c.TimelinesPath == "" && c.GeminiAPIKey == "" {
		return errors.New("GEMINI_API_KEY is required unless timelines are supplied")
	}
	return openai.ValidateBaseURL(c.OpenAIBaseURL, c.OpenAIAllowedHosts)
}

// Run wires the adapters, prepares the run workspace, and drives one
// edit end to end. The final video plus a result manifest land in a
// per-run output directory.
func Run(ctx context.Context, cfg Config) (types.AssembleResult, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	prof, err := LoadProfile(cfg.ProfilePath)
	if err != nil {
		return types.AssembleResult{}, err
	}
	if cfg.Concurrency > 0 {
		prof.Concurrency = cfg.Concurrency
	}

	scriptSource := cfg.ScriptPath
	if cfg.EditScriptPath != "" {
		scriptSource = cfg.EditScriptPath
	}
	script, err := os.ReadFile(scriptSource)
	if err != nil {
		return types.AssembleResult{}, fmt.Errorf("read script: %w", err)
	}

	outDir := cfg.OutDir
	if outDir == "" {
		outDir = "out"
	}
	runDir := buildRunDir(outDir, scriptSource, time.Now().UTC())
	ws := workspace.New(runDir)
	if err := ws.Init(); err != nil {
		return types.AssembleResult{}, err
	}
	log.Info("run workspace ready", zap.String("dir", runDir))

	if _, err := ws.Save(workspace.Scripts, filepath.Base(scriptSource), script); err != nil {
		return types.AssembleResult{}, err
	}

	media := ffmpeg.New(ffmpeg.Config{
		FFmpegPath:         cfg.FFmpegPath,
		FrameRate:          prof.FrameRate,
		PixelFormat:        prof.PixelFormat,
		VideoCodec:         prof.VideoCodec,
		Preset:             prof.Preset,
		CRF:                prof.CRF,
		AudioCodec:         prof.AudioCodec,
		AudioRate:          prof.AudioRate,
		AudioBitrate:       prof.AudioBitrate,
		ConcatAudioBitrate: prof.ConcatAudioBitrate,
		DefaultResolution:  types.Resolution{Width: prof.TargetWidth, Height: prof.TargetHeight},
	})

	var res types.AssembleResult
	if cfg.EditScriptPath != "" {
		shots, err := usecase.ParseEditScript(script)
		if err != nil {
			return types.AssembleResult{}, err
		}
		uc := usecase.New(usecase.Deps{Media: media, Logger: log})
		res, err = uc.Assemble(ctx, usecase.EditScriptInput{
			Shots:       shots,
			MediaDir:    cfg.MediaDir,
			ClipsDir:    ws.Dir(workspace.Clips),
			OutputPath:  filepath.Join(runDir, "final.mp4"),
			Concurrency: prof.Concurrency,
		})
		if err != nil {
			return res, err
		}
	} else {
		gen := openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
		plan := planner.New(gen, editplan.Options{
			MinClipSeconds:          prof.MinClipSeconds,
			TotalMarginFrac:         prof.TotalMarginFrac,
			TotalMarginFloorSeconds: prof.TotalMarginFloorSeconds,
		})

		var und ports.Understander
		if cfg.GeminiAPIKey != "" {
			und = gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)
		}

		uc := usecase.New(usecase.Deps{
			Media:        media,
			Planner:      plan,
			Understander: und,
			Logger:       log,
		})

		in := usecase.Input{
			Script:      string(script),
			ClipsDir:    ws.Dir(workspace.Clips),
			OutputPath:  filepath.Join(runDir, "final.mp4"),
			Concurrency: prof.Concurrency,
		}

		if cfg.TimelinesPath != "" {
			timelines, err := loadTimelines(cfg.TimelinesPath)
			if err != nil {
				return types.AssembleResult{}, err
			}
			in.Timelines = timelines
		} else {
			assets, err := listAssets(cfg.MediaDir)
			if err != nil {
				return types.AssembleResult{}, err
			}
			in.Assets = assets
		}

		res, err = uc.Run(ctx, in)
		if err != nil {
			return res, err
		}
	}

	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return res, fmt.Errorf("marshal result: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, "result.json"), b, 0o644); err != nil {
		return res, err
	}
	log.Info("result written",
		zap.String("output", res.OutputPath),
		zap.Float64("duration", res.Duration))
	return res, nil
}

// listAssets collects the video files of a directory in name order;
// the catalog order doubles as the source order the plan must honor.
func listAssets(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read media dir: %w", err)
	}
	var assets []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := videoExts[strings.ToLower(filepath.Ext(e.Name()))]; !ok {
			continue
		}
		assets = append(assets, filepath.Join(dir, e.Name()))
	}
	sort.Strings(assets)
	if len(assets) == 0 {
		return nil, fmt.Errorf("no video assets in %s", dir)
	}
	return assets, nil
}

func loadTimelines(path string) ([]types.AssetTimeline, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read timelines: %w", err)
	}
	var timelines []types.AssetTimeline
	if err := json.Unmarshal(b, &timelines); err != nil {
		return nil, fmt.Errorf("parse timelines %s: %w", path, err)
	}
	if len(timelines) == 0 {
		return nil, fmt.Errorf("timelines file %s is empty", path)
	}
	return timelines, nil
}

func buildRunDir(outRoot, scriptPath string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(scriptPath), filepath.Ext(scriptPath))
	name = normalizePathSegment(name)
	if name == "" {
		name = "run"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", scriptPath, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}
