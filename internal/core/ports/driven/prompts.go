package driven

// PromptStore provides access to prompt templates for model-backed extractors.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Unknown names with no file on disk return an error.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// PromptImageDescribe asks a vision model to transcribe and describe an image.
const PromptImageDescribe = "image_describe"


// PromptDiagramDescribe asks a vision model for the nodes and connections
// of a flowchart or diagram.
const PromptDiagramDescribe = "diagram_describe"
