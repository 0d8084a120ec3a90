package scanner

// FileRecord describes one regular file found in the input directory.
// It is created once per scan and not modified afterwards.
type FileRecord struct {
	Path         string                 `json:"path"`
	Name         string                 `json:"name"`
	Size         int64                  `json:"size"`
	Extension    string                 `json:"extension"`
	ModTime      string                 `json:"mod_time,omitempty"`
	CreationTime string                 `json:"creation_time,omitempty"`
	MimeType     string                 `json:"mime_type,omitempty"`
	Hashes       map[string]string      `json:"hashes,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}
