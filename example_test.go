package histostore_test

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/hupe1980/histostore"
	"github.com/hupe1980/histostore/container"
	"github.com/hupe1980/histostore/ndarray"
	"github.com/hupe1980/histostore/record"
)

// Example_template demonstrates encoding and decoding a histogram template.
func Example_template() {
	dir, err := os.MkdirTemp("", "histostore-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "template.hsc")
	bins := [][]float64{{0, 10, 20, 50}}
	signal := ndarray.FromSlice([]float64{5, 3, 1})

	err = histostore.EncodeTemplate(path, bins, []*ndarray.Array{signal},
		histostore.WithHistogramNames([]string{"signal"}),
		histostore.WithAxisNames([]string{"energy"}),
		histostore.WithMetadata(histostore.ScalarMetadata{"version": "1.0"}),
		histostore.WithCompression(container.CompressionLZ4),
	)
	if err != nil {
		log.Fatal(err)
	}

	tmpl, err := histostore.DecodeTemplate(path)
	if err != nil {
		log.Fatal(err)
	}
	h, _ := tmpl.Histogram("signal")
	fmt.Println(tmpl.AxisNames, tmpl.Bins[0], h.Data(), tmpl.Metadata["version"])

	_, err = histostore.DecodeTemplate(path, histostore.WithHistogramNames([]string{"background"}))
	fmt.Println(errors.Is(err, histostore.ErrMissingKey))
	// Output:
	// [energy] [0 10 20 50] [5 3 1] 1.0
	// true
}

type fitResult struct {
	Mu     float64 `rec:"mu"`
	Status int32   `rec:"status"`
}

// Example_aggregate demonstrates writing toy shards and concatenating them.
func Example_aggregate() {
	dir, err := os.MkdirTemp("", "histostore-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	for i := 0; i < 3; i++ {
		fits, err := record.FromSlice([]fitResult{{Mu: float64(i)}, {Mu: float64(i) + 0.5}})
		if err != nil {
			log.Fatal(err)
		}
		path := filepath.Join(dir, fmt.Sprintf("toys_%d.hsc", i))
		if err := histostore.WriteShard(path, []histostore.Stream{{Name: "fits", Records: fits}}); err != nil {
			log.Fatal(err)
		}
	}

	streams, err := histostore.Aggregate(filepath.Join(dir, "toys_*.hsc"), histostore.WithConcurrency(2))
	if err != nil {
		log.Fatal(err)
	}
	mu, err := streams["fits"].Float64s("mu")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(streams["fits"].Len(), mu)
	// Output: 6 [0 0.5 1 1.5 2 2.5]
}
