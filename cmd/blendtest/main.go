// Command blendtest blends a rectangle of one image into another with the
// Laplacian pyramid blender and writes the result.
package main

import (
	"flag"
	"fmt"
	"os"

	"tourist-remover/internal/blend"
	imgpkg "tourist-remover/internal/image"
	"tourist-remover/internal/mask"
)

func main() {
	whitePath := flag.String("white", "", "Path to base image (kept outside the rectangle)")
	blackPath := flag.String("black", "", "Path to patch image (used inside the rectangle)")
	x := flag.Int("x", 0, "Rectangle left")
	y := flag.Int("y", 0, "Rectangle top")
	w := flag.Int("w", 0, "Rectangle width")
	h := flag.Int("h", 0, "Rectangle height")
	border := flag.String("border", "zero", "Border mode: zero or reflect101")
	out := flag.String("out", "blend.png", "Output path")
	maskOut := flag.String("mask", "", "Also write the mask to this path")
	flag.Parse()

	if *whitePath == "" || *blackPath == "" || *w <= 0 || *h <= 0 {
		fmt.Println("Usage: blendtest -white <img> -black <img> -x X -y Y -w W -h H [-border zero|reflect101] [-out path]")
		os.Exit(1)
	}

	white, err := imgpkg.Load(*whitePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load white image: %v\n", err)
		os.Exit(1)
	}
	black, err := imgpkg.Load(*blackPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load black image: %v\n", err)
		os.Exit(1)
	}

	b, err := blend.ParseBorder(*border)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	opts := blend.DefaultOptions()
	opts.Border = b

	fmt.Printf("Image: %dx%d, pyramid depth %d, border %s\n",
		white.Width, white.Height, blend.Depth(white.Height, white.Width), b)

	m := mask.BuildRect(white.Height, white.Width, *x, *y, *w, *h)
	result, err := blend.New(opts).Blend(white, black, m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Blend failed: %v\n", err)
		os.Exit(1)
	}

	if err := imgpkg.Save(*out, result); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write result: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", *out)

	if *maskOut != "" {
		if err := imgpkg.Save(*maskOut, m); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write mask: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", *maskOut)
	}
}
