package domain

import "runtime"

// Settings is the typed view of the configuration file.
type Settings struct {
	// DataDir holds the SQLite database. Empty means ~/.docstage.
	DataDir string

	// Chunk holds default chunking parameters.
	Chunk ChunkSettings

	// Extractors is the ordered list of backends run for every file.
	Extractors []string

	// Ingest holds input validation and concurrency settings.
	Ingest IngestSettings

	// VLM configures the vision-language backend.
	VLM VLMSettings
}

// ChunkSettings holds chunker parameters, measured in runes.
type ChunkSettings struct {
	TargetSize int
	Overlap    int
}

// IngestSettings configures input validation and the worker pool.
type IngestSettings struct {
	// AllowedExtensions are lower-case with dot. Empty allows every
	// extension some registered backend supports.
	AllowedExtensions []string

	// MaxFileSizeMB rejects larger inputs. Zero disables the check.
	MaxFileSizeMB int

	// Workers is the number of files processed concurrently.
	Workers int
}

// MaxFileSizeBytes returns the size limit in bytes.
func (s IngestSettings) MaxFileSizeBytes() int64 {
	return int64(s.MaxFileSizeMB) * 1024 * 1024
}

// VLMSettings configures the Ollama-backed vision backend.
type VLMSettings struct {
	BaseURL           string
	Model             string
	TimeoutSeconds    int
	RequestsPerSecond float64
}

// DefaultExtractors returns the backends enabled out of the box.
// The vlm and vlm_diagram backends need a running model server and are opt-in.
func DefaultExtractors() []string {
	return []string{"plaintext", "markdown", "html", "docx", "pdf"}
}

// DefaultWorkers returns half the CPUs, at least one.
func DefaultWorkers() int {
	n := runtime.NumCPU() / 2
	if n < 1 {
		return 1
	}
	return n
}

// DefaultSettings returns settings with sensible defaults.
func DefaultSettings() Settings {
	return Settings{
		Chunk: ChunkSettings{
			TargetSize: 1000,
			Overlap:    200,
		},
		Extractors: DefaultExtractors(),
		Ingest: IngestSettings{
			MaxFileSizeMB: 100,
			Workers:       DefaultWorkers(),
		},
		VLM: VLMSettings{
			BaseURL:           "http://localhost:11434",
			Model:             "llava",
			TimeoutSeconds:    120,
			RequestsPerSecond: 1,
		},
	}
}
