package artifact

// Artifact is a generated downloadable file.
type Artifact struct {
	Name        string
	ContentType string
	Body        []byte
}
