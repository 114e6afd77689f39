package archive

import (
	"context"
	"net/url"
	"path"

	"github.com/rotisserie/eris"

	"github.com/skyfield-labs/co2scan/internal/fetcher"
)

// FTPSource downloads granules from an explicit list of FTP URLs. Some
// institutional archives mirror lite files on anonymous FTP rather than S3.
type FTPSource struct {
	urls    []string
	fetcher *fetcher.FTPFetcher
}

// NewFTPSource creates an FTP archive source for the given URLs.
func NewFTPSource(urls []string, f *fetcher.FTPFetcher) *FTPSource {
	if f == nil {
		f = fetcher.NewFTPFetcher(fetcher.FTPOptions{})
	}
	return &FTPSource{urls: urls, fetcher: f}
}

// List returns the configured URLs. Each must parse and carry a file name.
func (s *FTPSource) List(ctx context.Context) ([]string, error) {
	for _, raw := range s.urls {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "archive: parse ftp url %s", raw)
		}
		if path.Base(u.Path) == "." || path.Base(u.Path) == "/" {
			return nil, eris.Errorf("archive: ftp url %s has no file name", raw)
		}
	}
	return s.urls, nil
}

// Fetch downloads one FTP URL to the local path.
func (s *FTPSource) Fetch(ctx context.Context, rawURL, localPath string) error {
	if _, err := s.fetcher.DownloadToFile(ctx, rawURL, localPath); err != nil {
		return eris.Wrapf(err, "archive: ftp download %s", rawURL)
	}
	return nil
}
