package transfer

import (
	"errors"
	"fmt"
	"hotfolder/internal/logger"
	"hotfolder/internal/metrics"
	"hotfolder/internal/model"
	"hotfolder/internal/util"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

type Handler struct {
	report func(model.StatusLine)
	rename func(oldpath, newpath string) error
}

type Option func(*Handler)

// WithReporter sets the function receiving one status line per Handle call.
func WithReporter(fn func(model.StatusLine)) Option {
	return func(h *Handler) {
		h.report = fn
	}
}

func New(opts ...Option) *Handler {
	h := &Handler{
		rename: os.Rename,
	}
	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Handle places src under destDir as destDir/<base name of src>. An existing
// entry with that name is overwritten.
func (h *Handler) Handle(src, destDir string, mode model.TransferMode) (model.TransferOutcome, error) {
	outcome, err := h.transfer(src, destDir, mode)

	line := Describe(src, destDir, mode, err)
	if err != nil {
		logger.Log.Error("transfer failed",
			zap.String("mode", string(mode)),
			zap.String("src", src),
			zap.String("dest", destDir),
			zap.String("kind", KindName(err)),
			zap.Error(err))
		metrics.RecordTransfer(string(mode), KindName(err), 0, false)
	} else {
		logger.Log.Info("transferred",
			zap.String("mode", string(mode)),
			zap.String("src", outcome.SrcPath),
			zap.String("dst", outcome.DstPath),
			zap.Bool("cross_device", outcome.CrossDevice))
		metrics.RecordTransfer(string(mode), "OK", outcome.Bytes, outcome.CrossDevice)
	}

	if h.report != nil {
		h.report(line)
	}

	return outcome, err
}

// Describe renders the status line for one transfer attempt.
func Describe(src, destDir string, mode model.TransferMode, err error) model.StatusLine {
	line := model.StatusLine{
		Time:    time.Now(),
		SrcPath: src,
	}

	if err == nil {
		line.Text = fmt.Sprintf("%s %s to %s", mode.Verb(), src, destDir)
		return line
	}

	detail := err.Error()
	var te *Error
	if ok := errors.As(err, &te); ok {
		detail = te.Err.Error()
	}

	line.Err = err.Error()
	line.Text = fmt.Sprintf("Failed to %s %s to %s: %s: %s",
		strings.ToLower(string(mode)), src, destDir, KindName(err), detail)
	return line
}

func (h *Handler) transfer(src, destDir string, mode model.TransferMode) (model.TransferOutcome, error) {
	outcome := model.TransferOutcome{
		Mode:    mode,
		SrcPath: src,
		DestDir: destDir,
	}

	srcInfo, err := os.Lstat(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return outcome, newError(ErrSourceVanished, src, err)
		}
		return outcome, newError(nil, src, err)
	}

	if srcInfo.IsDir() {
		return outcome, newError(nil, src, fmt.Errorf("%s is a directory", src))
	}

	destInfo, err := os.Stat(destDir)
	if err != nil {
		return outcome, newError(ErrDestinationUnwritable, src, err)
	}

	if !destInfo.IsDir() {
		return outcome, newError(ErrDestinationUnwritable, src, fmt.Errorf("%s is not a directory", destDir))
	}

	dst := filepath.Join(destDir, filepath.Base(src))
	outcome.DstPath = dst

	if filepath.Clean(src) == dst {
		return outcome, newError(nil, src, fmt.Errorf("%s is already in %s", src, destDir))
	}

	if info, err := os.Lstat(dst); err == nil && info.IsDir() {
		return outcome, newError(ErrDestinationUnwritable, src, fmt.Errorf("%s is a directory", dst))
	}

	switch mode {
	case model.ModeMove:
		err = h.move(src, dst, &outcome)
	case model.ModeCopy:
		outcome.Bytes, err = copyFile(src, dst)
	default:
		err = newError(nil, src, fmt.Errorf("unknown transfer mode %q", mode))
	}

	return outcome, err
}

func (h *Handler) move(src, dst string, outcome *model.TransferOutcome) error {
	err := h.rename(src, dst)
	if err == nil {
		return nil
	}

	if !isCrossDevice(err) {
		return classify(src, dst, err)
	}

	logger.Log.Debug("rename crosses filesystems, copying instead",
		zap.String("src", src),
		zap.String("dst", dst))

	n, err := copyFile(src, dst)
	if err != nil {
		return err
	}

	outcome.Bytes = n
	outcome.CrossDevice = true

	if err := util.RemoveIfExists(src); err != nil {
		return newError(nil, src, fmt.Errorf("copied but failed to remove source: %w", err))
	}

	return nil
}

// copyFile writes the contents of src to dst with the mode of the file src
// resolves to, so a symlink yields its target's permission bits.
func copyFile(src, dst string) (int64, error) {
	f, err := os.Open(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, newError(ErrSourceVanished, src, err)
		}
		return 0, newError(nil, src, err)
	}

	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	info, err := f.Stat()
	if err != nil {
		return 0, newError(nil, src, err)
	}

	n, err := util.AtomicWrite(dst, f, info.Mode().Perm())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return n, newError(ErrDestinationUnwritable, src, err)
		}
		return n, newError(nil, src, err)
	}

	return n, nil
}

// classify maps a failed rename onto the side that caused it. A permission
// error only blames the destination when its directory is not writable.
func classify(src, dst string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if _, statErr := os.Lstat(src); errors.Is(statErr, fs.ErrNotExist) {
			return newError(ErrSourceVanished, src, err)
		}
		return newError(ErrDestinationUnwritable, src, err)
	case errors.Is(err, fs.ErrPermission):
		if !dirWritable(filepath.Dir(dst)) {
			return newError(ErrDestinationUnwritable, src, err)
		}
		return newError(nil, src, err)
	default:
		return newError(nil, src, err)
	}
}
