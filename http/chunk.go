package http

// Chunk is a single unit of an incoming request body, delivered by the
// transport in arrival order. A chunk is either a piece of a named form
// field (multipart and urlencoded bodies are decomposed upstream) or a
// piece of the raw body.
type Chunk struct {
	// Name is the form field name. Empty for raw body data.
	Name string
	// Filename is set for file upload fields only.
	Filename string
	Data     []byte
	// FieldComplete marks the last piece of the named field.
	FieldComplete bool
	// Last marks the terminal chunk of the whole body.
	Last bool
}

// IsForm reports whether the chunk belongs to a named form field.
func (c Chunk) IsForm() bool {
	return len(c.Name) != 0
}

// IsUpload reports whether the chunk belongs to a file upload field.
func (c Chunk) IsUpload() bool {
	return c.IsForm() && len(c.Filename) != 0
}
