package contentcore

// Options carries processor-specific settings. Engine-specific entries
// override global ones when the executor merges them per attempt.
type Options map[string]any

// merged returns a copy of base with overlay entries applied on top.
func (o Options) merged(overlay Options) Options {
	out := make(Options, len(o)+len(overlay))
	for k, v := range o {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

// Source is the unified input representation for content extraction.
// Exactly one of FilePath, URL, or Content must be set.
type Source struct {
	FilePath string
	URL      string
	Content  []byte

	// MIMEType is the declared type of the content. When empty it is
	// detected before engine resolution.
	MIMEType string

	// Options carries source-level processor options.
	Options Options
}

// Validate checks the exactly-one-of constraint.
func (s *Source) Validate() error {
	provided := 0
	if s.FilePath != "" {
		provided++
	}
	if s.URL != "" {
		provided++
	}
	if s.Content != nil {
		provided++
	}
	if provided != 1 {
		return &SourceValidationError{Provided: provided}
	}
	return nil
}

// SourceType returns "file", "url", or "content".
func (s *Source) SourceType() string {
	switch {
	case s.FilePath != "":
		return "file"
	case s.URL != "":
		return "url"
	default:
		return "content"
	}
}

// FileSource returns a Source reading from a local file.
func FileSource(path string) Source {
	return Source{FilePath: path}
}

// URLSource returns a Source fetching from a URL.
func URLSource(url string) Source {
	return Source{URL: url}
}

// ContentSource returns a Source over raw bytes.
func ContentSource(data []byte) Source {
	return Source{Content: data}
}
