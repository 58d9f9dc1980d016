package histostore

import (
	"context"
	"time"

	"github.com/hupe1980/histostore/internal/template"
	"github.com/hupe1980/histostore/ndarray"
)

// Template is a decoded histogram template: the axes (bin edges and names)
// shared by all histograms, the histograms with their names, and metadata.
type Template struct {
	Bins           [][]float64
	AxisNames      []string
	Histograms     []*ndarray.Array
	HistogramNames []string
	Metadata       ScalarMetadata
}

// Histogram returns the named histogram.
func (t *Template) Histogram(name string) (*ndarray.Array, bool) {
	for i, n := range t.HistogramNames {
		if n == name {
			return t.Histograms[i], true
		}
	}
	return nil, false
}

// EncodeTemplate writes bins and histograms as a template container at path,
// replacing any existing file.
//
// Supported options: WithHistogramNames, WithAxisNames, WithMetadata,
// WithCompression, WithShapeValidation, WithLogger, WithMetrics.
//
// Returns ErrArgumentMismatch when names and inputs disagree in length or a
// metadata value is not a scalar. No file is created in that case, and a
// failed write never leaves a partial container.
func EncodeTemplate(path string, bins [][]float64, histograms []*ndarray.Array, opts ...Option) error {
	o := applyOptions(opts)
	start := time.Now()

	err := translateError(template.Encode(path, bins, histograms, template.EncodeOptions{
		HistogramNames: o.histogramNames,
		AxisNames:      o.axisNames,
		Metadata:       o.metadata,
		ValidateShape:  o.validateShape,
		Compression:    o.compression,
		Logger:         o.logger.Logger,
	}))

	o.metricsCollector.RecordEncode(time.Since(start), err)
	o.logger.LogEncode(context.Background(), path, len(histograms), err)
	return err
}

// DecodeTemplate reads the template container at path.
//
// Without WithHistogramNames every histogram is returned in container order;
// with it exactly the named histograms are returned, or ErrMissingKey.
// Axes missing a name attribute are named "axis<i>".
func DecodeTemplate(path string, opts ...Option) (*Template, error) {
	o := applyOptions(opts)
	start := time.Now()

	t, err := template.Decode(path, template.DecodeOptions{
		HistogramNames: o.histogramNames,
		Logger:         o.logger.Logger,
	})
	err = translateError(err)

	o.metricsCollector.RecordDecode(time.Since(start), err)
	if err != nil {
		o.logger.LogDecode(context.Background(), path, 0, err)
		return nil, err
	}
	o.logger.LogDecode(context.Background(), path, len(t.Histograms), nil)

	return &Template{
		Bins:           t.Bins,
		AxisNames:      t.AxisNames,
		Histograms:     t.Histograms,
		HistogramNames: t.HistogramNames,
		Metadata:       t.Metadata,
	}, nil
}

// DecodeTemplateMetadata reads only the metadata of the template at path.
func DecodeTemplateMetadata(path string) (ScalarMetadata, error) {
	md, err := template.DecodeMetadata(path)
	if err != nil {
		return nil, translateError(err)
	}
	return md, nil
}
