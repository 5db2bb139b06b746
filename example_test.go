package rasterstore_test

import (
	"fmt"
	"io"
	"log"

	rasterstore "github.com/rastervault/raster-store-go"
	"github.com/rastervault/raster-store-go/env"
)

func Example() {
	geo := rasterstore.Geometry{Width: 4, Height: 2, Channels: 2}
	payload := []byte("Hello World!")

	buf := &env.Buffer{}
	w, err := rasterstore.NewWriter(buf, geo, uint64(len(payload)))
	if err != nil {
		log.Fatal(err)
	}

	// Write data in chunks.
	for _, b := range [][]byte{payload[:5], payload[5:]} {
		_, err = w.Write(b)
		if err != nil {
			log.Fatal(err)
		}
	}

	// Close pads and flushes the final frame.
	err = w.Close()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Frames: %d\n", buf.NumFrames())

	r, err := rasterstore.NewReader(buf, geo)
	if err != nil {
		log.Fatal(err)
	}

	restored, err := io.ReadAll(r)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Restored: %s\n", string(restored))

	// Output:
	// Frames: 2
	// Restored: Hello World!
}
