package types

// AssetTimeline is one source video plus its second-indexed content
// description produced by the media-understanding capability. It is
// immutable once created.
type AssetTimeline struct {
	Path        string  `json:"asset_path"`
	Duration    float64 `json:"duration"`
	Description string  `json:"description"`
}

// ClipSelection maps one narrative beat to a bounded time range within
// one source asset. Produced as a batch by the planner and only used
// after the whole batch passes validation.
type ClipSelection struct {
	AssetPath   string  `json:"asset_path"`
	StartTime   float64 `json:"start_time"`
	EndTime     float64 `json:"end_time"`
	Description string  `json:"description"`
}

func (s ClipSelection) Duration() float64 { return s.EndTime - s.StartTime }

// Shot is one entry of an edit script consumed directly by the
// assembly stage: a media-library file name plus an in-clip range.
type Shot struct {
	File        string  `json:"file"`
	StartInClip float64 `json:"start_in_clip"`
	Duration    float64 `json:"duration"`
	Description string  `json:"description"`
}

// MediaProfile is the probed technical profile of a media file.
// Recomputed on every probe; never cached across runs since files on
// disk are created and rewritten mid-pipeline.
type MediaProfile struct {
	Duration  float64
	Width     int
	Height    int
	FrameRate float64
	HasAudio  bool
}

func (p MediaProfile) Pixels() int { return p.Width * p.Height }

// Resolution is a target (width, height) chosen once per concatenation
// run and applied uniformly.
type Resolution struct {
	Width  int
	Height int
}

func (r Resolution) Pixels() int { return r.Width * r.Height }

// CropRect is a crop window in the ffmpeg crop filter's W:H:X:Y
// convention.
type CropRect struct {
	W int
	H int
	X int
	Y int
}

// AssembleResult is the structured outcome of a run. Warnings carry
// per-clip failures that did not abort the run.
type AssembleResult struct {
	OutputPath string          `json:"output_file"`
	Duration   float64         `json:"duration"`
	Selections []ClipSelection `json:"selections"`
	Warnings   []string        `json:"warnings,omitempty"`
}
