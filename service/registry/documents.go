package registry

import (
	"bytes"
	"context"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
)

// FsDocumentStore stores documents on any afs-supported file system.
type FsDocumentStore struct {
	baseURL string
	fs      afs.Service
}

// NewFsDocumentStore creates a document store rooted at baseURL.
func NewFsDocumentStore(baseURL string) *FsDocumentStore {
	return &FsDocumentStore{
		baseURL: url.Normalize(baseURL, file.Scheme),
		fs:      afs.New(),
	}
}

// Read downloads a document; relative URLs resolve against the base URL.
func (s *FsDocumentStore) Read(ctx context.Context, URL string) ([]byte, error) {
	return s.fs.DownloadWithURL(ctx, s.resolve(URL))
}

// Write uploads a document; relative URLs resolve against the base URL.
func (s *FsDocumentStore) Write(ctx context.Context, URL string, data []byte) error {
	return s.fs.Upload(ctx, s.resolve(URL), file.DefaultFileOsMode, bytes.NewReader(data))
}

func (s *FsDocumentStore) resolve(URL string) string {
	if url.IsRelative(URL) {
		return url.Join(s.baseURL, URL)
	}
	return URL
}

var _ DocumentStore = (*FsDocumentStore)(nil)
