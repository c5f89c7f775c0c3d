// Command aligntest registers a secondary photograph against a primary and
// writes the warped image and a simple merge for inspection.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"tourist-remover/internal/alignment"
	"tourist-remover/internal/features"
	imgpkg "tourist-remover/internal/image"
)

func main() {
	primaryPath := flag.String("p", "", "Path to primary image")
	secondaryPath := flag.String("s", "", "Path to secondary image")
	outDir := flag.String("o", ".", "Output directory")
	seed := flag.Int64("seed", 1, "RANSAC seed")
	debug := flag.Bool("debug", false, "Enable debug output")
	flag.Parse()

	if *primaryPath == "" || *secondaryPath == "" {
		fmt.Println("Usage: aligntest -p <primary> -s <secondary> [-o <dir>] [-seed N] [-debug]")
		os.Exit(1)
	}

	fmt.Printf("=== Loading ===\n")
	primary, err := imgpkg.Load(*primaryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load primary: %v\n", err)
		os.Exit(1)
	}
	secondary, err := imgpkg.Load(*secondaryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load secondary: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Primary:   %dx%d\n", primary.Width, primary.Height)
	fmt.Printf("Secondary: %dx%d\n", secondary.Width, secondary.Height)

	opts := alignment.DefaultOptions()
	opts.Seed = *seed
	opts.Debug = *debug
	registrar, closeFn := features.NewRegistrar(opts)
	defer closeFn()

	fmt.Printf("\n=== Aligning ===\n")
	res, err := registrar.Align(primary, secondary)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Alignment failed: %v\n", err)
		os.Exit(1)
	}

	reg := res.Registration
	fmt.Printf("Keypoints: %d secondary, %d primary\n", reg.SecondaryKeypoints, reg.PrimaryKeypoints)
	fmt.Printf("Matches: %d raw, %d used, %d inliers\n", reg.RawMatches, len(reg.Correspondences), len(reg.Inliers))
	fmt.Printf("Mean error: %.2f px\n", reg.MeanError)
	fmt.Printf("Coverage: %.1f%%\n", 100*res.Coverage())
	fmt.Printf("Homography:\n")
	for _, row := range res.Homography {
		fmt.Printf("  %12.6f %12.6f %12.6f\n", row[0], row[1], row[2])
	}

	merged, err := imgpkg.SimpleMerge(primary, res.Aligned)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Merge failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n=== Writing ===\n")
	outputs := []struct {
		name string
		save func(string) error
	}{
		{"original_warp.png", func(p string) error { return imgpkg.Save(p, res.Aligned) }},
		{"simple_merge.png", func(p string) error { return imgpkg.Save(p, merged) }},
	}
	for _, o := range outputs {
		path := filepath.Join(*outDir, o.name)
		if err := o.save(path); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", path)
	}
}
