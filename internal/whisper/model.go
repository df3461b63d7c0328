package whisper

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const DefaultModel = "base"

// DefaultSpeedCoefficient is used for model names missing from the
// registry, e.g. weights dropped into the cache directory by hand.
const DefaultSpeedCoefficient = 0.5

type Model struct {
	Name     string
	FileName string
	URL      string
	SHA256   string
	// Speed is the estimated processing seconds per second of audio.
	// Smaller models transcribe faster.
	Speed    float64
	SizeHint string
}

type ResolvedModel struct {
	Name          string
	Path          string
	URL           string
	SHA256        string
	Speed         float64
	NeedsDownload bool
}

var registry = map[string]Model{
	"tiny": {
		Name:     "tiny",
		FileName: "tiny.pt",
		URL:      "https://openaipublic.azureedge.net/main/whisper/models/65147644a518d12f04e32d6f3b26facc3f8dd46e5390956a9424a650c0ce22b9/tiny.pt",
		SHA256:   "65147644a518d12f04e32d6f3b26facc3f8dd46e5390956a9424a650c0ce22b9",
		Speed:    0.1,
		SizeHint: "~39 MB",
	},
	"base": {
		Name:     "base",
		FileName: "base.pt",
		URL:      "https://openaipublic.azureedge.net/main/whisper/models/ed3a0b6b1c0edf879ad9b11b1af5a0e6ab5db9205f891f668f8b0e6c6326e34e/base.pt",
		SHA256:   "ed3a0b6b1c0edf879ad9b11b1af5a0e6ab5db9205f891f668f8b0e6c6326e34e",
		Speed:    0.2,
		SizeHint: "~74 MB",
	},
	"small": {
		Name:     "small",
		FileName: "small.pt",
		URL:      "https://openaipublic.azureedge.net/main/whisper/models/9ecf779972d90ba49c06d968637d720dd632c55bbf19d441fb42bf17a411e794/small.pt",
		SHA256:   "9ecf779972d90ba49c06d968637d720dd632c55bbf19d441fb42bf17a411e794",
		Speed:    0.5,
		SizeHint: "~244 MB",
	},
	"medium": {
		Name:     "medium",
		FileName: "medium.pt",
		URL:      "https://openaipublic.azureedge.net/main/whisper/models/345ae4da62f9b3d59415adc60127b97c714f32e89e936602e85993674d08dcb1/medium.pt",
		SHA256:   "345ae4da62f9b3d59415adc60127b97c714f32e89e936602e85993674d08dcb1",
		Speed:    1.0,
		SizeHint: "~769 MB",
	},
	"large": {
		Name:     "large",
		FileName: "large.pt",
		URL:      "https://openaipublic.azureedge.net/main/whisper/models/81f7c96c852ee8fc832187b0132e569d6c3065a3252ed18e56effd0b6a73e524/large-v2.pt",
		SHA256:   "81f7c96c852ee8fc832187b0132e569d6c3065a3252ed18e56effd0b6a73e524",
		Speed:    2.0,
		SizeHint: "~1550 MB",
	},
}

func ModelNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func LookupModel(name string) (Model, bool) {
	model, ok := registry[name]
	return model, ok
}

// SpeedCoefficient returns the processing-time multiplier for a model
// name, falling back to a middle-of-the-road value for unknown names.
func SpeedCoefficient(name string) float64 {
	if model, ok := registry[name]; ok {
		return model.Speed
	}
	return DefaultSpeedCoefficient
}

// ResolveModel maps a model name to its expected weights file inside the
// cache directory and reports whether a download is still required.
func ResolveModel(name, cacheDir string) (ResolvedModel, error) {
	if strings.TrimSpace(name) == "" {
		name = DefaultModel
	}

	model, ok := LookupModel(name)
	if !ok {
		return ResolvedModel{}, fmt.Errorf("unknown model %q (known models: %s)", name, strings.Join(ModelNames(), ", "))
	}
	if strings.TrimSpace(cacheDir) == "" {
		return ResolvedModel{}, errors.New("cache directory must not be empty")
	}

	modelPath := filepath.Join(cacheDir, model.FileName)
	_, statErr := os.Stat(modelPath)
	needsDownload := errors.Is(statErr, os.ErrNotExist)
	if statErr != nil && !errors.Is(statErr, os.ErrNotExist) {
		return ResolvedModel{}, fmt.Errorf("stat model path: %w", statErr)
	}

	return ResolvedModel{
		Name:          model.Name,
		Path:          modelPath,
		URL:           model.URL,
		SHA256:        model.SHA256,
		Speed:         model.Speed,
		NeedsDownload: needsDownload,
	}, nil
}
