package automation

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
)

const maxImages = 20

// downloadImages fetches listing photos into a temporary directory so they
// can be attached to the file input. cleanup removes the directory.
func downloadImages(ctx context.Context, client *http.Client, urls []string) ([]string, func(), error) {
	noop := func() {}
	if len(urls) == 0 {
		return nil, noop, nil
	}
	if len(urls) > maxImages {
		urls = urls[:maxImages]
	}

	dir, err := os.MkdirTemp("", "listing-images-")
	if err != nil {
		return nil, noop, err
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	files := make([]string, 0, len(urls))
	for i, u := range urls {
		dest := filepath.Join(dir, fmt.Sprintf("%02d%s", i, imageExt(u)))
		if err := fetch(ctx, client, u, dest); err != nil {
			cleanup()
			return nil, noop, err
		}
		files = append(files, dest)
	}
	return files, cleanup, nil
}

func fetch(ctx context.Context, client *http.Client, src, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", src, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: status %d", src, resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func imageExt(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ".jpg"
	}
	switch ext := path.Ext(u.Path); ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return ext
	}
	return ".jpg"
}
