// Package backup copies the JSON data files into a timestamped directory and
// optionally mirrors them to object storage.
package backup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Uploader stores one backed-up file under key.
type Uploader interface {
	Upload(ctx context.Context, key string, body io.Reader) error
}

type Result struct {
	Dir      string   `json:"dir"`
	Files    []string `json:"files"`
	Uploaded int      `json:"uploaded"`
}

type Runner struct {
	dataDir    string
	backupsDir string
	uploader   Uploader
	log        *slog.Logger
	now        func() time.Time
}

// New returns a Runner. uploader may be nil.
func New(dataDir, backupsDir string, uploader Uploader, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		dataDir:    dataDir,
		backupsDir: backupsDir,
		uploader:   uploader,
		log:        log,
		now:        time.Now,
	}
}

// Run copies every *.json file of the data directory into
// backups/backup_YYYYMMDD_HHMMSS. Saves replace data files by rename, so each
// copy is a complete version of its file.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	name := "backup_" + r.now().Format("20060102_150405")
	res := Result{Dir: filepath.Join(r.backupsDir, name), Files: []string{}}

	if err := os.MkdirAll(res.Dir, 0o755); err != nil {
		return res, fmt.Errorf("create backup dir: %w", err)
	}

	files, err := filepath.Glob(filepath.Join(r.dataDir, "*.json"))
	if err != nil {
		return res, err
	}
	sort.Strings(files)

	if len(files) == 0 {
		r.log.WarnContext(ctx, "no data files found to back up", "data_dir", r.dataDir)
		return res, nil
	}

	for _, src := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		base := filepath.Base(src)
		dst := filepath.Join(res.Dir, base)
		if err := copyFile(src, dst); err != nil {
			return res, fmt.Errorf("back up %s: %w", base, err)
		}
		res.Files = append(res.Files, base)
		r.log.InfoContext(ctx, "backed up data file", "file", base, "dir", res.Dir)

		if r.uploader != nil {
			if err := r.upload(ctx, name+"/"+base, dst); err != nil {
				return res, fmt.Errorf("upload %s: %w", base, err)
			}
			res.Uploaded++
		}
	}

	r.log.InfoContext(ctx, "backup completed", "files", len(res.Files), "dir", res.Dir, "uploaded", res.Uploaded)
	return res, nil
}

func (r *Runner) upload(ctx context.Context, key, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return r.uploader.Upload(ctx, key, f)
}

// copyFile copies contents and modification time.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
