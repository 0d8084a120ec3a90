package scanner

import (
	"context"
	"io"
	"os"
	"time"

	"docprobe/hasher"
	"docprobe/metadata"

	"github.com/h2non/filetype"
	"github.com/spf13/afero"
)

// FileModule enriches a FileRecord with one optional piece of information.
type FileModule interface {
	Name() string
	Enabled(opts Options) bool
	Collect(ctx context.Context, fc *FileContext, data *FileRecord) error
}

type FileContext struct {
	Fs   afero.Fs
	Path string
	Info os.FileInfo
	Opts Options

	mimeLoaded bool
	mimeType   string
}

func (fc *FileContext) MimeType() string {
	if fc.mimeLoaded {
		return fc.mimeType
	}
	mimeType, err := DetectMimeType(fc.Fs, fc.Path)
	if err != nil || mimeType == "" {
		mimeType = "unknown"
	}
	fc.mimeType = mimeType
	fc.mimeLoaded = true
	return fc.mimeType
}

func buildFileModules() []FileModule {
	return []FileModule{
		timesModule{},
		mimeModule{},
		hashModule{},
		metadataModule{},
	}
}

type timesModule struct{}

func (m timesModule) Name() string { return "times" }

func (m timesModule) Enabled(opts Options) bool { return true }

func (m timesModule) Collect(ctx context.Context, fc *FileContext, data *FileRecord) error {
	data.ModTime = fc.Info.ModTime().UTC().Format(time.RFC3339)
	times, err := fileTimes(fc.Fs, fc.Path)
	if err != nil {
		return err
	}
	data.CreationTime = times.CreationTime
	return nil
}

type mimeModule struct{}

func (m mimeModule) Name() string { return "mime" }

func (m mimeModule) Enabled(opts Options) bool { return true }

func (m mimeModule) Collect(ctx context.Context, fc *FileContext, data *FileRecord) error {
	data.MimeType = fc.MimeType()
	return nil
}

type hashModule struct{}

func (m hashModule) Name() string { return "hashes" }

func (m hashModule) Enabled(opts Options) bool { return len(opts.HashAlgorithms) > 0 }

func (m hashModule) Collect(ctx context.Context, fc *FileContext, data *FileRecord) error {
	hashes, err := hasher.ComputeHashes(fc.Fs, fc.Path, fc.Opts.HashAlgorithms)
	if len(hashes) > 0 {
		data.Hashes = hashes
	}
	return err
}

type metadataModule struct{}

func (m metadataModule) Name() string { return "metadata" }

func (m metadataModule) Enabled(opts Options) bool { return opts.CollectMetadata }

func (m metadataModule) Collect(ctx context.Context, fc *FileContext, data *FileRecord) error {
	meta := metadata.ExtractMetadata(fc.Fs, fc.Path, data.Extension, fc.MimeType(), fc.Opts.MetadataMaxBytes)
	if len(meta) > 0 {
		data.Metadata = meta
	}
	return nil
}

// DetectMimeType sniffs the file header. Files without a known signature
// report "unknown".
func DetectMimeType(fs afero.Fs, path string) (string, error) {
	file, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	buf := make([]byte, 261)
	n, err := io.ReadFull(file, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}
	if n == 0 {
		return "unknown", nil
	}

	kind, err := filetype.Match(buf[:n])
	if err != nil {
		return "", err
	}
	if kind == filetype.Unknown || kind.MIME.Value == "" {
		return "unknown", nil
	}
	return kind.MIME.Value, nil
}
