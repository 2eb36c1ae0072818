package transfer

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"

	"nxmodmgr/internal/domain"
)

// copyFile copies src to dst using the shared 8 MiB buffer, reporting
// intra-file progress every intraFileProgressStep percent for files
// above intraFileThresholdBytes (spec.md §4.3 install step 3). It
// honours cancellation between buffer-sized chunks.
func copyFile(ctx context.Context, src, dst string, size int64, onIntraFile func(percent int)) (err error) {
	if cerr := checkCancel(ctx); cerr != nil {
		return cerr
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return domain.NewError(domain.ErrIoOpen, src, err)
	}
	defer srcFile.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return domain.NewError(domain.ErrIoCreate, filepath.Dir(dst), err)
	}

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return domain.NewError(domain.ErrIoCreate, dst, err)
	}
	defer func() {
		if cerr := dstFile.Close(); err == nil && cerr != nil {
			err = domain.NewError(domain.ErrIoWrite, dst, cerr)
		}
	}()

	reader := bufio.NewReaderSize(srcFile, stdioBufferSize)
	writer := bufio.NewWriterSize(dstFile, stdioBufferSize)

	buf := make([]byte, bulkBufferSize)
	reportIntraFile := size > intraFileThresholdBytes
	var written int64
	lastPercent := -1

	for {
		if cerr := checkCancel(ctx); cerr != nil {
			return cerr
		}

		n, rerr := reader.Read(buf)
		if n > 0 {
			wn, werr := writer.Write(buf[:n])
			if werr == nil && wn != n {
				werr = io.ErrShortWrite
			}
			if werr != nil {
				return domain.NewError(domain.ErrIoWrite, dst, werr)
			}
			written += int64(wn)

			if reportIntraFile && onIntraFile != nil && size > 0 {
				percent := int(written * 100 / size)
				percent -= percent % intraFileProgressStep
				if percent != lastPercent {
					lastPercent = percent
					onIntraFile(percent)
				}
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return domain.NewError(domain.ErrIoRead, src, rerr)
		}
	}

	if err := writer.Flush(); err != nil {
		return domain.NewError(domain.ErrIoWrite, dst, err)
	}

	return nil
}
