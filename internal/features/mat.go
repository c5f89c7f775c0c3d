package features

import (
	"fmt"
	"runtime"
	"sync"

	"gocv.io/x/gocv"

	"tourist-remover/internal/raster"
)

// grayToMat converts the luminance of img to an 8-bit single-channel Mat
// (parallelized). The caller owns the returned Mat.
func grayToMat(img *raster.Image) (gocv.Mat, error) {
	if img == nil {
		return gocv.Mat{}, raster.ErrNilImage
	}
	if img.Height == 0 || img.Width == 0 {
		return gocv.Mat{}, fmt.Errorf("empty image %s", img.Size())
	}

	gray := img.Gray()
	height, width := gray.Rows, gray.Cols
	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC1)

	// Parallelize by horizontal stripes
	numWorkers := runtime.NumCPU()
	rowsPerWorker := (height + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		startY := w * rowsPerWorker
		endY := min(startY+rowsPerWorker, height)
		if startY >= height {
			break
		}

		wg.Add(1)
		go func(yStart, yEnd int) {
			defer wg.Done()
			for y := yStart; y < yEnd; y++ {
				for x := 0; x < width; x++ {
					mat.SetUCharAt(y, x, uint8(raster.Clamp8(gray.At(y, x))))
				}
			}
		}(startY, endY)
	}
	wg.Wait()

	return mat, nil
}
